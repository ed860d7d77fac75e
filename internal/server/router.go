// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/librarydb/internal/server/handlers"
	"github.com/maruel/librarydb/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router.
//
// Every path not listed below, and every unsupported method on a listed path,
// is answered with 404 "Endpoint not found". A single trailing slash is
// ignored. limiters may be nil to disable rate limiting.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limiters *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}
	bh := handlers.NewBookHandler(svc)
	hh := handlers.NewHealthHandler(svc, cfg.Version)
	histh := handlers.NewHistoryHandler(svc)

	// Books
	mux.Handle("GET /books", Wrap(bh.ListBooks, svc, cfg, limiters))
	mux.Handle("POST /books", Wrap(bh.CreateBook, svc, cfg, limiters))
	mux.Handle("GET /books/{id}", Wrap(bh.GetBook, svc, cfg, limiters))
	mux.Handle("PUT /books/{id}", Wrap(bh.UpdateBook, svc, cfg, limiters))
	mux.Handle("DELETE /books/{id}", Wrap(bh.DeleteBook, svc, cfg, limiters))

	// Operations
	mux.Handle("GET /health", Wrap(hh.Health, svc, cfg, limiters))
	mux.Handle("GET /schema", Wrap(handlers.Schema, svc, cfg, limiters))
	mux.Handle("GET /history", Wrap(histh.History, svc, cfg, limiters))

	// Catch-all. It also shadows the 405 the mux would otherwise send for a
	// known path with another method.
	mux.HandleFunc("/", handlers.NotFound)

	return withRequestMetadata(withAccessLog(withOptionalTrailingSlash(mux)))
}
