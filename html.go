/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", html.EscapeString(body)))

	return htmlBody.String()
}

func pageHead(cfg *Config, title string) string {
	var b strings.Builder

	b.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	b.WriteString(`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
	b.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/table.css">`, cfg.prefix))
	b.WriteString(fmt.Sprintf("<title>%s</title></head>", html.EscapeString(title)))

	return b.String()
}

func homePage(cfg *Config) string {
	var b strings.Builder

	b.WriteString(pageHead(cfg, "tabletop"))
	b.WriteString(`<body><main class="home"><h1>tabletop</h1><ul>`)
	for _, g := range tableGames(cfg) {
		b.WriteString(fmt.Sprintf(`<li><a href="%s%s">%s</a></li>`, cfg.prefix, g.path, g.title))
	}
	if cfg.dailyDB != "" {
		b.WriteString(fmt.Sprintf(`<li><a href="%s/daily/today">Daily questions</a></li>`, cfg.prefix))
	}
	b.WriteString(`</ul></main></body></html>`)

	return b.String()
}

func tablePage(cfg *Config, title, code string) string {
	var b strings.Builder

	b.WriteString(pageHead(cfg, title+" "+code))
	b.WriteString(fmt.Sprintf(`<body data-code="%s">`, html.EscapeString(code)))
	b.WriteString(fmt.Sprintf(`<header><h1>%s <span class="code">%s</span></h1>`, html.EscapeString(title), html.EscapeString(code)))
	b.WriteString(`<img class="qr" src="` + html.EscapeString(code) + `/qr" alt="Share this table"></header>`)
	b.WriteString(`<section id="join"><input id="name" maxlength="24" placeholder="Your name"><button id="join-button">Join</button></section>`)
	b.WriteString(`<section id="actions"></section><p id="notice"></p><pre id="state"></pre>`)
	b.WriteString(fmt.Sprintf(`<script src="%s/assets/table.js"></script>`, cfg.prefix))
	b.WriteString(`</body></html>`)

	return b.String()
}

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		if _, err := w.Write([]byte(homePage(cfg))); err != nil {
			errs <- err
		}
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, cfg.prefix), "/")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		ext := strings.ToLower(filepath.Ext(fname))
		switch ext {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
				}

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
