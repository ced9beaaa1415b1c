// Package auth implements credential validation, password hashing,
// bearer-token issuance and verification, and the request guard that
// gates protected handlers.
package auth

import (
	"context"
	"time"
)

// Principal is the authenticated identity attached to a request after a
// strategy succeeds. It lives for the duration of the request only.
type Principal struct {
	// Subject is the id of the authenticated user.
	Subject int

	// Username, Email and the timestamps are populated when authentication
	// verified stored credentials directly (login). Token authentication
	// carries only the subject; callers needing the full record look it up
	// by Subject themselves.
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type contextKey string

const principalContextKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the principal attached by the guard, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}
