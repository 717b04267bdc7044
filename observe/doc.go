// Package observe provides the service's observability primitives.
//
// It is pure instrumentation: structured logging, OpenTelemetry tracing
// and metrics, and HTTP middleware that wires all three around request
// handlers. No transport, no I/O beyond exporter setup.
package observe
