/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

func homePage(cfg *Config, ds *dataset) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon())
	htmlBody.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	htmlBody.WriteString(`<style>body{font-family:sans-serif;max-width:38rem;margin:4rem auto;padding:0 1rem;color:#1c2b21;}`)
	htmlBody.WriteString(`a.start{display:inline-block;padding:.6rem 1.2rem;background:#2c6e49;color:#fff;border-radius:.4rem;text-decoration:none;}`)
	htmlBody.WriteString(`p.stats{color:#5a6e60;}</style>`)
	htmlBody.WriteString(`<title>phylo</title></head><body>`)
	htmlBody.WriteString(`<h1>phylo</h1>`)
	htmlBody.WriteString(`<p>A taxonomy solver for Metazooa-style guessing games. Tell it the clade the game reveals after each guess, and it narrows the candidates until only the answer is left.</p>`)
	htmlBody.WriteString(fmt.Sprintf(`<p class="stats">Tracking %d species across %d taxa, rooted at %s.</p>`,
		len(ds.tree.Leaves()), ds.tree.Len(), ds.tree.Name(ds.tree.Root())))
	htmlBody.WriteString(fmt.Sprintf(`<a class="start" href="%s/game">Start solving</a>`, cfg.prefix))
	htmlBody.WriteString(`</body></html>`)

	return htmlBody.String()
}

func serveHomePage(cfg *Config, ds *dataset, errs chan<- error) httprouter.Handle {
	page := []byte(homePage(cfg, ds))

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write(page)
		if err != nil {
			errs <- err

			return
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
