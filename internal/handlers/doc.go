// Package handlers provides the operational HTTP endpoints: health, liveness,
// readiness, build version and the Prometheus metrics handler.
package handlers
