package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/votsa/ssr/internal/identity"
)

const (
	AnonymousIDCookie = "anonymousId"
	CountryCookie     = "userCountryCode"
	countryHeader     = "CF-IPCountry"

	identityCookieMaxAge = 365 * 24 * time.Hour
)

// IdentityMiddleware attaches the visitor's identity to the request context,
// issuing the cookies on first visit.
func IdentityMiddleware(ids identity.IDGenerator, defaultCountry string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user := identity.User{}

			if c, err := r.Cookie(AnonymousIDCookie); err == nil && c.Value != "" {
				user.AnonymousID = c.Value
			} else {
				user.AnonymousID = ids.NewID()
				setCookie(w, AnonymousIDCookie, user.AnonymousID)
			}

			if c, err := r.Cookie(CountryCookie); err == nil && c.Value != "" {
				user.CountryCode = c.Value
			} else {
				user.CountryCode = strings.ToUpper(strings.TrimSpace(r.Header.Get(countryHeader)))
				if user.CountryCode == "" {
					user.CountryCode = defaultCountry
				}
				setCookie(w, CountryCookie, user.CountryCode)
			}

			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
		}
		return http.HandlerFunc(fn)
	}
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(identityCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
