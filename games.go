/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"time"

	"github.com/Seednode/tabletop/games/blackjack"
	"github.com/Seednode/tabletop/games/cards"
	"github.com/Seednode/tabletop/games/table"
	"github.com/Seednode/tabletop/games/yahtzee"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// tableGame describes one game served under /<path>.
type tableGame struct {
	path    string
	title   string
	factory table.Factory
}

func tableGames(cfg *Config) []tableGame {
	bj := cfg.blackjackRules()
	yz := cfg.yahtzeeRules()

	return []tableGame{
		{
			path:  "/blackjack",
			title: "Blackjack",
			factory: func(string) table.Game {
				return blackjack.New(bj, cards.NewSource())
			},
		},
		{
			path:  "/yahtzee",
			title: "Yahtzee",
			factory: func(string) table.Game {
				return yahtzee.New(yz, cards.NewSource())
			},
		},
	}
}

func serveTablePage(cfg *Config, g tableGame, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, err := table.NormalizeCode(ps.ByName("code"))
		if err != nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			securityHeaders(cfg, w)
			w.WriteHeader(http.StatusNotFound)

			if _, err := w.Write([]byte(newPage("Not Found", "No such table. Start a new one."))); err != nil {
				errs <- err
			}
			return
		}

		if code != ps.ByName("code") {
			http.Redirect(w, r, cfg.prefix+g.path+"/"+code, http.StatusTemporaryRedirect)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		if _, err := w.Write([]byte(tablePage(cfg, g.title, code))); err != nil {
			errs <- err
		}
	}
}

// redirectNewGame handles GET /path by reserving a fresh room code and
// redirecting to /path/:code.
func redirectNewGame(cfg *Config, log zerolog.Logger, path string, reg *table.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := reg.NewCode()
		log.Info().Str("room", code).Str("game", path).Msg("GAMES: Assigned room code")
		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// registerTableGame sets up routes so that:
//   - $path            → redirects to a new room code
//   - $path/:code      → HTML client
//   - $path/:code/ws   → WebSocket for that room
//   - $path/:code/qr   → PNG QR code for that room URL
func registerTableGame(cfg *Config, log zerolog.Logger, g tableGame, mux *httprouter.Router, errs chan<- error) *table.Registry {
	gw := newGateway(g.path[1:], log)

	reg := table.NewRegistry(g.factory, table.Options{
		IdleTimeout: cfg.roomTimeout,
		Publisher:   gw,
		Logger:      gw.log,
		Clock:       time.Now,
	})
	gw.reg = reg

	mux.GET(cfg.prefix+g.path, redirectNewGame(cfg, log, g.path, reg))
	mux.GET(cfg.prefix+g.path+"/:code", serveTablePage(cfg, g, errs))
	mux.GET(cfg.prefix+g.path+"/:code/ws", gw.serveWS())
	mux.GET(cfg.prefix+g.path+"/:code/qr", qrHandler(cfg))

	return reg
}
