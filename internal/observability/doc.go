// Package observability groups the logging and tracing helpers used by the
// poller and its HTTP side servers.
//
// Subpackages:
//   - logging: slog JSON/text loggers and per-cycle context propagation
//   - tracing: OpenTelemetry tracer and HTTP middleware
//
// Prometheus collectors live next to the code they measure (usecase/watch,
// usecase/announce, infra/worker).
package observability
