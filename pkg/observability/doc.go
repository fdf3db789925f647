// Package observability provides the operational surface of the platform:
// structured JSON logging over slog, Prometheus metrics for HTTP traffic
// and access decisions, OpenTelemetry tracing, health probes and graceful
// shutdown.
package observability
