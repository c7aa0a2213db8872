package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/guidesmith/internal/guideservice"
	"github.com/starford/guidesmith/internal/seed"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
// inbox, if non-nil, enables asynchronous guide requests (?async=true).
func NewRouter(svc *guideservice.Service, catalog *seed.Catalog, inbox Enqueuer, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, catalog, inbox)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/guides", h.ListGuides)
	r.Post("/guides", h.CreateGuide)
	r.Get("/guides/{id}", h.GetGuide)

	r.Post("/topics", h.SuggestTopics)
	r.Post("/resolve", h.Resolve)

	r.Post("/seed", h.Seed)
	r.Get("/seed/runs", h.SeedRuns)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
