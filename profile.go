/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

func profileHandler(log zerolog.Logger, h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		log.Debug().Str("path", r.URL.Path).Str("ip", realIP(r)).Msg("SERVE: Profile request")
		h.ServeHTTP(w, r)
	}
}

func registerProfileHandlers(cfg *Config, log zerolog.Logger, mux *httprouter.Router) {
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.GET(cfg.prefix+"/pprof/"+name, profileHandler(log, pprof.Handler(name)))
	}
	mux.GET(cfg.prefix+"/pprof/", profileHandler(log, http.HandlerFunc(pprof.Index)))
	mux.GET(cfg.prefix+"/pprof/cmdline", profileHandler(log, http.HandlerFunc(pprof.Cmdline)))
	mux.GET(cfg.prefix+"/pprof/profile", profileHandler(log, http.HandlerFunc(pprof.Profile)))
	mux.GET(cfg.prefix+"/pprof/symbol", profileHandler(log, http.HandlerFunc(pprof.Symbol)))
	mux.GET(cfg.prefix+"/pprof/trace", profileHandler(log, http.HandlerFunc(pprof.Trace)))
}
