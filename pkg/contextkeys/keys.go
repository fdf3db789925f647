// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys shared between middleware and handlers must
// be defined here. This prevents typos, documents dependencies, and makes
// key usage discoverable. Keys private to one package (the observability
// logger keys) stay with that package.
package contextkeys

import (
	"context"

	"github.com/brightlane/agencyhub/pkg/identity"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains the resolved identity of the caller
	// Set by: middleware.Auth (pkg/middleware/auth.go)
	// Required by: all protected API endpoints
	// Type: identity.ResolvedIdentity
	IdentityKey Key = "resolved_identity"

	// PrincipalKey contains the raw authenticated principal
	// Set by: middleware.Auth before domain resolution
	// Used by: handlers that need token claims beyond the resolved role
	// Type: identity.Principal
	PrincipalKey Key = "principal"
)

// WithIdentity adds the resolved identity to the context
func WithIdentity(ctx context.Context, ident identity.ResolvedIdentity) context.Context {
	return context.WithValue(ctx, IdentityKey, ident)
}

// GetIdentity retrieves the resolved identity from context. A request
// that never passed the auth middleware yields an unbound identity,
// which denies all non-public access downstream.
func GetIdentity(ctx context.Context) identity.ResolvedIdentity {
	if ident, ok := ctx.Value(IdentityKey).(identity.ResolvedIdentity); ok {
		return ident
	}
	return identity.ResolvedIdentity{Kind: identity.KindUnbound}
}

// WithPrincipal adds the raw principal to the context
func WithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal retrieves the raw principal from context
func GetPrincipal(ctx context.Context) (identity.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(identity.Principal)
	return p, ok
}
