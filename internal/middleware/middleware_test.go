package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/votsa/ssr/internal/identity"
	mid "github.com/votsa/ssr/internal/middleware"
	"github.com/votsa/ssr/internal/obs"
)

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() string { return f.id }

func TestIdentityMiddleware_IssuesCookies(t *testing.T) {
	var got identity.User
	h := mid.IdentityMiddleware(fixedIDs{id: "anon-1"}, "US")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = identity.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("CF-IPCountry", "pt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.AnonymousID != "anon-1" || got.CountryCode != "PT" {
		t.Fatalf("unexpected user %+v", got)
	}
	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	if cookies[mid.AnonymousIDCookie] != "anon-1" || cookies[mid.CountryCookie] != "PT" {
		t.Fatalf("unexpected cookies %v", cookies)
	}
}

func TestIdentityMiddleware_ReusesCookies(t *testing.T) {
	var got identity.User
	h := mid.IdentityMiddleware(fixedIDs{id: "fresh"}, "US")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = identity.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.AddCookie(&http.Cookie{Name: mid.AnonymousIDCookie, Value: "known"})
	req.AddCookie(&http.Cookie{Name: mid.CountryCookie, Value: "DE"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.AnonymousID != "known" || got.CountryCode != "DE" {
		t.Fatalf("unexpected user %+v", got)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("expected no cookies to be reissued")
	}
}

func TestIdentityMiddleware_DefaultCountry(t *testing.T) {
	var got identity.User
	h := mid.IdentityMiddleware(fixedIDs{id: "a"}, "US")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = identity.FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got.CountryCode != "US" {
		t.Fatalf("expected default country, got %q", got.CountryCode)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := mid.TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok || time.Until(deadline) > time.Second {
		t.Fatalf("expected a deadline within a second, got %v (%v)", deadline, ok)
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := obs.NewMetrics(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(mid.MetricsMiddleware(m))
	r.Get("/search/sessions/{searchId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search/sessions/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/search/sessions/def", nil))

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/search/sessions/{searchId}", "404"))
	if got != 2 {
		t.Fatalf("expected 2 requests under the route pattern, got %v", got)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := mid.LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(identity.WithUser(context.Background(), identity.User{AnonymousID: "anon-1", CountryCode: "PT"}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{`"msg":"request completed"`, `"status":418`, `"path":"/healthz"`, `"anonymous_id":"anon-1"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in log line %s", want, line)
		}
	}
}
