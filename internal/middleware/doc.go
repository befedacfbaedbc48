// Package middleware provides HTTP middleware for the page server.
//
// It includes:
//   - Request IDs taken from X-Request-ID or generated
//   - OpenTelemetry server spans with W3C trace context propagation
//   - Prometheus request metrics
//   - Structured access logging with filters for static files and health checks
package middleware
