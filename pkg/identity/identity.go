package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightlane/agencyhub/pkg/domain"
)

// RoleAdmin is the coarse role granted by the auth provider to platform
// administrators. It short-circuits domain record lookup entirely.
const RoleAdmin = "admin"

// Principal is an authenticated caller as reported by the auth provider,
// before any domain role resolution. Immutable for the life of a request.
type Principal struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// HasRole reports whether the principal carries the given coarse role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// Kind is the resolved domain role of a principal.
type Kind string

const (
	KindAdmin      Kind = "admin"
	KindClient     Kind = "client"
	KindTeamMember Kind = "team_member"
	KindUnbound    Kind = "unbound"
)

// ResolvedIdentity is the domain role derived from a Principal, plus the
// ID of the domain record it is bound to. Exactly one of ClientID or
// TeamMemberID is set for the corresponding kind.
type ResolvedIdentity struct {
	Kind         Kind
	PrincipalID  string
	Email        string // normalized to lower case
	ClientID     int64  // set when Kind == KindClient
	TeamMemberID int64  // set when Kind == KindTeamMember
}

// IsAdmin reports whether the identity is a platform administrator.
func (id ResolvedIdentity) IsAdmin() bool { return id.Kind == KindAdmin }

// IsUnbound reports whether the principal matched no domain record. An
// unbound identity must be denied all non-public access.
func (id ResolvedIdentity) IsUnbound() bool { return id.Kind == KindUnbound }

// Registry is the read-only view over the client and team member records
// the resolver matches principals against. Lookups are case-insensitive on
// email; a miss returns (nil, nil).
type Registry interface {
	TeamMemberByEmail(ctx context.Context, email string) (*domain.TeamMember, error)
	ClientByEmail(ctx context.Context, email string) (*domain.Client, error)
}

// Resolver resolves principals against the current registry snapshot. It
// is a pure function of its inputs: calling Resolve twice in one request
// yields the same identity.
type Resolver struct {
	registry Registry
}

// NewResolver creates a resolver over the given registry.
func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve maps a principal to its domain role.
//
// The admin coarse role always wins: an admin account is never classified
// as a client or team member even if its email matches one of those
// registries. Otherwise the team member registry is consulted before the
// client registry; an operator holding both kinds of record resolves as a
// team member. A principal matching neither registry resolves to Unbound.
func (r *Resolver) Resolve(ctx context.Context, p Principal) (ResolvedIdentity, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	id := ResolvedIdentity{
		Kind:        KindUnbound,
		PrincipalID: p.ID,
		Email:       email,
	}

	if p.HasRole(RoleAdmin) {
		id.Kind = KindAdmin
		return id, nil
	}

	if email == "" {
		return id, nil
	}

	member, err := r.registry.TeamMemberByEmail(ctx, email)
	if err != nil {
		return ResolvedIdentity{}, fmt.Errorf("failed to look up team member: %w", err)
	}
	if member != nil {
		id.Kind = KindTeamMember
		id.TeamMemberID = member.ID
		return id, nil
	}

	client, err := r.registry.ClientByEmail(ctx, email)
	if err != nil {
		return ResolvedIdentity{}, fmt.Errorf("failed to look up client: %w", err)
	}
	if client != nil {
		id.Kind = KindClient
		id.ClientID = client.ID
		return id, nil
	}

	return id, nil
}
