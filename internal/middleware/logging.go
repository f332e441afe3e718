package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/votsa/ssr/internal/identity"
)

// LoggingMiddleware logs one line per request (request-id, route, status, duration, visitor).
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			rid := middleware.GetReqID(r.Context())
			if rid == "" {
				rid = r.Header.Get("X-Request-Id")
			}
			start := time.Now()
			rec := &statusRecorder{
				ResponseWriter: w,
				Status:         http.StatusOK,
			}
			next.ServeHTTP(rec, r)

			attrs := []any{
				"request_id", rid,
				"method", r.Method,
				"path", r.URL.Path,
				"route", routePattern(r),
				"status", rec.Status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if u, ok := identity.FromContext(r.Context()); ok {
				attrs = append(attrs, "anonymous_id", u.AnonymousID, "country", u.CountryCode)
			}

			level := slog.LevelInfo
			if rec.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request completed", attrs...)
		}
		return http.HandlerFunc(fn)
	}
}
