// Package middleware provides the HTTP middleware chain: request ID
// assignment and OIDC bearer-token authentication with domain identity
// resolution.
//
// The auth middleware authenticates the caller and resolves their domain
// role exactly once per request. Handlers read the result from context
// via pkg/contextkeys; they never re-resolve.
package middleware
