// Package requestcontext carries per-request values (request id and the
// authenticated principal) through context.Context.
package requestcontext

import (
	"context"
	"slices"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	principalKey
)

// Principal is the caller identified by a verified bearer token.
type Principal struct {
	Subject string
	Roles   []string
}

// HasRole reports whether the principal carries role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// WithRequestID stores the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithPrincipal stores the authenticated caller.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
