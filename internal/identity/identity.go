package identity

import (
	"context"

	"github.com/google/uuid"
)

// User identifies the visitor on whose behalf upstream calls are made.
type User struct {
	AnonymousID string `json:"anonymousId"`
	CountryCode string `json:"countryCode"`
}

type ctxKey struct{}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// FromContext returns the request's user, if the identity middleware ran.
func FromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok
}

// IDGenerator produces search ids, client request ids and anonymous ids.
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}
