// Package site serves the embedded landing page: a live view of the
// leaderboard and a lookup box, both backed by the JSON API.
package site

import (
	"context"
	"net/http"
)

// Register attaches the landing page and its assets to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("GET /{$}", files)
	mux.Handle("GET /static/", http.StripPrefix("/static", files))
}
