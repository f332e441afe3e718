package routes

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	handlers "github.com/votsa/ssr/internal/http"
	"github.com/votsa/ssr/internal/identity"
	mid "github.com/votsa/ssr/internal/middleware"
	"github.com/votsa/ssr/internal/obs"
)

type Options struct {
	RequestTimeout     time.Duration
	DefaultCountryCode string
	IDs                identity.IDGenerator
}

func GetRoutes(h *handlers.Handler, metrics *obs.Metrics, logger *slog.Logger, opts Options) *chi.Mux {
	r := chi.NewRouter()
	// Useful built-in middlewares
	r.Use(middleware.RealIP)    // proper client IP extraction
	r.Use(middleware.RequestID) // sets request ID header
	r.Use(middleware.Recoverer) // built-in recoverer to avoid panics taking server down

	// our custom middlewares: metrics, logging, identity & timeout
	r.Use(mid.MetricsMiddleware(metrics))
	r.Use(mid.IdentityMiddleware(opts.IDs, opts.DefaultCountryCode))
	r.Use(mid.LoggingMiddleware(logger))
	r.Use(mid.TimeoutMiddleware(opts.RequestTimeout))

	r.Route("/search", func(r chi.Router) {
		r.Get("/", h.Search)
		r.Get("/api", h.SearchAPI)
		r.Get("/anchor", h.Anchor)
		r.Get("/offers", h.Offers)
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{searchId}", h.GetSession)
		r.Post("/sessions/{searchId}/more", h.LoadMore)
	})
	r.Get("/healthz", h.Healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	return r
}
