package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RecoveryMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			if h.apiKey != "" {
				r.Use(AuthMiddleware(h.apiKey))
			}

			r.Post("/analyze", h.Analyze)

			r.Post("/entries", h.AddEntry)
			r.Get("/entries", h.ListEntries)
			r.With(h.deleteLimiter.Middleware).Delete("/entries/{id}", h.DeleteEntry)
			r.With(h.deleteLimiter.Middleware).Delete("/entries", h.ClearEntries)

			r.Get("/favorites", h.ListFavorites)
			r.Post("/favorites", h.AddFavorite)
			r.With(h.deleteLimiter.Middleware).Delete("/favorites/{id}", h.DeleteFavorite)

			r.Get("/suggestions", h.Suggestions)
			r.Get("/charts", h.Charts)
			r.Post("/export", h.Export)
			r.Get("/archive/{date}", h.ArchiveLink)
			r.Get("/ruleset", h.Ruleset)
		})
	})

	return r
}
