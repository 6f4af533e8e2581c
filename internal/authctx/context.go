// Package authctx carries the authenticated principal through a request's
// context.Context.
package authctx

import (
	"context"
	"slices"
)

// Principal is the identity installed by the authentication gate.
type Principal struct {
	Name  string
	Kind  string
	Roles []string
}

// HasRole reports whether the principal carries role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, role)
}

type principalKey struct{}

// WithPrincipal returns a new context with p attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal attached to ctx, or nil for anonymous requests.
func FromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
