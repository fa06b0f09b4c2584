// Package tracing provides the OpenTelemetry tracer used for poll cycle spans
// and an HTTP middleware for the health and metrics servers.
//
// No exporter is installed by default, so spans are dropped unless the
// process registers a TracerProvider (tests use the in-memory exporter).
package tracing
