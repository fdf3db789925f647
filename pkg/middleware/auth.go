package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/brightlane/agencyhub/pkg/contextkeys"
	"github.com/brightlane/agencyhub/pkg/identity"
	"github.com/brightlane/agencyhub/pkg/observability"
)

// Verifier validates a raw bearer token and extracts the principal it
// asserts. Implementations must not consult domain records; role
// resolution happens afterwards in identity.Resolver.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (identity.Principal, error)
}

// OIDCVerifier validates ID tokens against an OIDC provider.
type OIDCVerifier struct {
	verifier   *oidc.IDTokenVerifier
	rolesClaim string
}

// NewOIDCVerifier discovers the provider's keys and returns a verifier
// bound to the given audience. rolesClaim names the claim carrying
// coarse roles; an empty string defaults to "roles".
func NewOIDCVerifier(ctx context.Context, issuer, clientID, rolesClaim string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	if rolesClaim == "" {
		rolesClaim = "roles"
	}
	return &OIDCVerifier{
		verifier:   provider.Verifier(&oidc.Config{ClientID: clientID}),
		rolesClaim: rolesClaim,
	}, nil
}

// Verify checks the token signature, issuer, audience and expiry, then
// extracts the subject, email and roles claims.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (identity.Principal, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("token verification failed: %w", err)
	}

	var claims map[string]interface{}
	if err := token.Claims(&claims); err != nil {
		return identity.Principal{}, fmt.Errorf("failed to parse token claims: %w", err)
	}

	p := identity.Principal{ID: token.Subject}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	if roles, ok := claims[v.rolesClaim].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p, nil
}

// Auth authenticates requests and resolves the caller's domain role.
type Auth struct {
	verifier Verifier
	resolver *identity.Resolver
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAuth creates the authentication middleware. metrics may be nil.
func NewAuth(verifier Verifier, resolver *identity.Resolver, logger *observability.Logger, metrics *observability.Metrics) *Auth {
	return &Auth{verifier: verifier, resolver: resolver, logger: logger, metrics: metrics}
}

// Handler wraps an HTTP handler with bearer authentication. A request
// with no valid token is rejected with 401; an authenticated principal
// that matches no domain record passes through as an unbound identity
// and is denied by the service layer instead.
func (m *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			m.unauthorized(w, "invalid authorization header format")
			return
		}

		ctx := r.Context()
		principal, err := m.verifier.Verify(ctx, parts[1])
		if err != nil {
			m.unauthorized(w, "invalid or expired token")
			return
		}

		ident, err := m.resolver.Resolve(ctx, principal)
		if err != nil {
			observability.FromContext(ctx).WithError(err).Error("identity resolution failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "identity resolution failed"})
			return
		}

		if m.metrics != nil {
			m.metrics.IdentityResolutionsTotal.WithLabelValues(string(ident.Kind)).Inc()
		}

		ctx = contextkeys.WithPrincipal(ctx, principal)
		ctx = contextkeys.WithIdentity(ctx, ident)
		ctx = observability.WithPrincipalID(ctx, principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Auth) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
