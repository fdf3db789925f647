// Package api exposes the access-controlled service over HTTP. Handlers
// are thin: they read the resolved identity from context, decode the
// request, call pkg/service and encode the result. All visibility and
// permission logic lives below the service boundary.
package api
