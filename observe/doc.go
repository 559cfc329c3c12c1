// Package observe provides OpenTelemetry-backed tracing, metrics, and
// structured logging for peer calls. An Observer bundles the configured
// providers; Middleware wraps a peer call with a span, call metrics, and
// a structured log line.
package observe
