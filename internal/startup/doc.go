// Package startup handles configuration loading and startup/shutdown logging.
//
// # Configuration
//
// Configuration is read once from the environment by [Load] (a .env file in
// the working directory is loaded first if present). Supported variables:
//
//   - NODE_ENV: "production" selects production mode; anything else is development (default: development)
//   - PORT: HTTP server port (default: 3000)
//   - SESSION_SECRET: Key material for signing the session cookie (required by serve)
//   - BUILD_DIR: Build output root; the client files live in BUILD_DIR/client and the manifest in BUILD_DIR/server/manifest.json (default: build)
//   - SOURCE_DIR: Client sources to fingerprint (default: app/assets)
//   - PUBLIC_DIR: Files copied verbatim into the client build (default: public)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable the metrics server (default: false)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health probe requests (default: false)
//   - TLS_CERT_FILE, TLS_KEY_FILE: Serve HTTPS in development
//   - WATCH_INTERVAL: Development rebuild polling interval (default: 1s)
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X page-server/internal/startup.Version=1.2.0 -X page-server/internal/startup.Commit=$(git rev-parse --short HEAD)" ./cmd/page-server
package startup
