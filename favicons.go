package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

// faviconSVG is a double-six domino tile.
const faviconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 32 64">
<rect x="1" y="1" width="30" height="62" rx="4" fill="#fff" stroke="#222" stroke-width="2"/>
<line x1="4" y1="32" x2="28" y2="32" stroke="#222" stroke-width="2"/>
<circle cx="9" cy="9" r="2.5" fill="#222"/><circle cx="16" cy="9" r="2.5" fill="#222"/><circle cx="23" cy="9" r="2.5" fill="#222"/>
<circle cx="9" cy="23" r="2.5" fill="#222"/><circle cx="16" cy="23" r="2.5" fill="#222"/><circle cx="23" cy="23" r="2.5" fill="#222"/>
<circle cx="9" cy="41" r="2.5" fill="#222"/><circle cx="16" cy="41" r="2.5" fill="#222"/><circle cx="23" cy="41" r="2.5" fill="#222"/>
<circle cx="9" cy="55" r="2.5" fill="#222"/><circle cx="16" cy="55" r="2.5" fill="#222"/><circle cx="23" cy="55" r="2.5" fill="#222"/>
</svg>`

func getFavicon() string {
	return `<link rel="icon" type="image/svg+xml" href="/favicon.svg">
	<meta name="theme-color" content="#ffffff">`
}

func serveFavicon(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Content-Length", strconv.Itoa(len(faviconSVG)))
		w.Header().Set("Expires", time.Now().Add(24*time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(faviconSVG))
		if err != nil {
			errs <- err

			return
		}
	}
}
