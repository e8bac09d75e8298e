package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/texrelink/internal/relinkservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *relinkservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.ListAssets)
		r.Post("/", h.RegisterAsset)
		r.Get("/missing", h.ListMissing)
		r.Get("/{name}", h.GetAsset)
		r.Delete("/{name}", h.DeleteAsset)
	})

	r.Post("/relink", h.Relink)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}/rewrites", h.RunRewrites)

	r.Post("/placement/format", h.FormatPlacement)
	r.Post("/colors/average", h.AverageColor)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
