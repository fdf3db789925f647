// Package identity maps authenticated principals to domain roles.
//
// The auth provider verifies credentials and hands the core a Principal:
// an opaque user ID, an email, and a set of coarse roles. Resolve turns
// that into a ResolvedIdentity, the tagged union every other part of the
// access control core consumes. Resolution happens once per request and is
// never cached across requests, since the underlying registries can change
// between requests.
package identity
