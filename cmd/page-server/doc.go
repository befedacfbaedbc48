// Package main provides the page-server command.
//
// # Commands
//
//   - serve: run the HTTP server
//   - build: fingerprint client assets and write the build manifest
//   - secret: print a random value for SESSION_SECRET
//   - version: print build information
//
// # Request Pipeline
//
// Every request gets a request ID, a tracing span and Prometheus metrics.
// The router answers /healthz, /livez, /readyz and /version directly and, in
// development, upgrades /__livereload to a websocket. Everything else goes
// through the static file responder, which answers /assets/* with a one
// year immutable cache and other public files with a one hour cache. Requests
// it cannot serve are access-logged, get a signed cookie session and reach
// the page routes with the application version in their load context.
//
// # Modes
//
// With NODE_ENV=production the server reads BUILD_DIR/server/manifest.json
// written by "page-server build" and refuses to start without it; pages see
// the manifest version. Otherwise the assets are built at startup, rebuilt
// when their sources change, and pages see the version "dev".
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server stops the asset watcher, closes live
// reload connections, stops the metrics collector, then shuts down the
// metrics and main servers with a 30 second timeout.
//
// Build with version information:
//
//	go build -ldflags "-X page-server/internal/startup.Version=1.0.0" -o page-server ./cmd/page-server
package main
