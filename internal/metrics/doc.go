// Package metrics provides Prometheus instrumentation for page-server.
//
// All metrics are registered on the default registry through promauto and
// are prefixed with "page_server_".
//
// # Metric Categories
//
// HTTP: request totals by method, path and status, request duration, and
// in-flight requests.
//
// Static assets: responder lookups by cache class (immutable or public) and
// result (hit or miss), asset build counts and durations, and the number of
// entries in the active build manifest.
//
// Sessions: cookie writes by outcome and cookies rejected during decoding.
//
// Pages: loader duration, action results, time to stream deferred values,
// and uploads by detected MIME kind.
//
// Development: connected live reload clients, asset watcher events, errors
// and watched directories.
//
// Go runtime and process metrics come from the collectors the default
// registry installs.
//
// # Usage
//
// The metrics server mounts the handler from the handlers package:
//
//	mux.Handle("/metrics", h.MetricsHandler())
//
// A [Collector] refreshes gauges that are derived from other components,
// such as the manifest size:
//
//	collector := metrics.NewCollector(store, time.Minute, clockwork.NewRealClock())
//	collector.Start()
//	defer collector.Stop()
package metrics
