package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"page-server/internal/assets"
	"page-server/internal/bridge"
	"page-server/internal/handlers"
	"page-server/internal/livereload"
	"page-server/internal/logging"
	"page-server/internal/metrics"
	"page-server/internal/middleware"
	"page-server/internal/page"
	"page-server/internal/routes"
	"page-server/internal/session"
	"page-server/internal/startup"
)

const (
	shutdownTimeout    = 30 * time.Second
	collectorInterval  = 15 * time.Second
	metricsReadTimeout = 10 * time.Second
)

var (
	clientStylesheets = []string{"app.css"}
	clientScripts     = []string{"entry.client.js"}
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the HTTP server.

In production (NODE_ENV=production) the build manifest written by
"page-server build" must exist. In development the assets are built on
startup, rebuilt when SOURCE_DIR or PUBLIC_DIR change, and open browsers
reload automatically.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			runServe()
		},
	}
}

// server holds every long-lived component of a running instance.
type server struct {
	cfg       *startup.Config
	manifests *assets.Store
	watcher   *assets.Watcher
	hub       *livereload.Hub
	app       *bridge.Bridge
	handlers  *handlers.Handlers
	router    *mux.Router
	handler   http.Handler
}

// newServer assembles the request pipeline without starting anything:
//
//	request ID -> tracing -> metrics -> router
//	router: probes, version, live reload, then
//	static files -> access log -> session -> bridge -> pages
func newServer(cfg *startup.Config, clock clockwork.Clock) (*server, error) {
	if err := cfg.RequireSessionSecret(); err != nil {
		return nil, err
	}
	sessions, err := session.NewStore(cfg.SessionSecret, cfg.IsProduction())
	if err != nil {
		return nil, err
	}

	manifest, err := loadManifest(cfg)
	if err != nil {
		return nil, err
	}

	s := &server{cfg: cfg, manifests: assets.NewStore(manifest)}

	opts := page.Options{
		Templates:   routes.Templates(),
		Patterns:    routes.TemplatePatterns,
		Manifests:   s.manifests,
		Stylesheets: clientStylesheets,
		Scripts:     clientScripts,
	}
	if !cfg.IsProduction() {
		s.hub = livereload.NewHub()
		s.watcher = assets.NewWatcher(cfg.BuildOptions(), s.manifests, cfg.WatchInterval, clock, func(m *assets.Manifest) {
			s.hub.Reload(m.Version)
		})
		opts.LiveReloadPath = livereload.Path
	}

	renderer, err := page.NewRenderer(opts)
	if err != nil {
		return nil, err
	}
	s.app = bridge.New(cfg.IsProduction(), s.manifests, renderer.Handler(routes.All(clock)))
	s.handlers = handlers.New(s.manifests, s.app, cfg.Mode(), clock)

	logConfig := middleware.DefaultLoggingConfig()
	logConfig.LogStaticFiles = cfg.LogStaticFiles
	logConfig.LogHealthChecks = cfg.LogHealthChecks
	logged := middleware.Logger(logConfig)

	r := mux.NewRouter()
	r.Handle("/healthz", logged(http.HandlerFunc(s.handlers.HealthCheck))).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/livez", logged(http.HandlerFunc(s.handlers.LivenessCheck))).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/readyz", logged(http.HandlerFunc(s.handlers.ReadinessCheck))).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/version", logged(http.HandlerFunc(s.handlers.GetVersion))).Methods(http.MethodGet)
	if s.hub != nil {
		r.Handle(livereload.Path, s.hub)
	}

	var pages http.Handler = s.app
	pages = sessions.Middleware(pages)
	pages = logged(pages)
	pages = assets.NewResponder(cfg.ClientDir).Middleware(pages)
	r.PathPrefix("/").Handler(pages)
	s.router = r

	var h http.Handler = r
	h = middleware.Metrics(middleware.DefaultMetricsConfig())(h)
	h = middleware.Tracing(middleware.DefaultTracingConfig())(h)
	h = middleware.RequestID(h)
	s.handler = h
	return s, nil
}

// loadManifest reads the manifest in production and builds the assets in
// development.
func loadManifest(cfg *startup.Config) (*assets.Manifest, error) {
	start := time.Now()
	if cfg.IsProduction() {
		m, err := assets.Load(cfg.ManifestPath)
		if err != nil {
			if errors.Is(err, assets.ErrNoManifest) {
				return nil, fmt.Errorf("%w (run \"page-server build\" first)", err)
			}
			return nil, err
		}
		startup.LogManifestLoaded(cfg.ManifestPath, m.Version, len(m.Entries), time.Since(start))
		return m, nil
	}

	m, err := assets.Build(cfg.BuildOptions())
	if err != nil {
		return nil, fmt.Errorf("initial asset build: %w", err)
	}
	startup.LogManifestLoaded("built from "+cfg.SourceDir, m.Version, len(m.Entries), time.Since(start))
	return m, nil
}

func runServe() {
	startTime := time.Now()

	cfg, err := startup.Load()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	logging.Configure(cfg.Level(), nil)
	startup.LogStartup(cfg)
	startup.ApplyMemoryLimit(cfg)

	clock := clockwork.NewRealClock()
	s, err := newServer(cfg, clock)
	if err != nil {
		startup.LogFatal("Startup error: %v", err)
	}

	if s.watcher != nil {
		if err := s.watcher.Start(); err != nil {
			startup.LogFatal("Failed to start asset watcher: %v", err)
		}
		startup.LogWatcherStarted(cfg.WatchInterval, cfg.SourceDir, cfg.PublicDir)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion, cfg.Mode())
	collector := metrics.NewCollector(s.manifests, collectorInterval, clock)
	collector.Start()

	var metricsSrv *http.Server
	if cfg.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", s.handlers.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: metricsReadTimeout,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	startup.LogHTTPRoutes(s.router, cfg.LogStaticFiles, cfg.LogHealthChecks)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.handler,
		ReadHeaderTimeout: 15 * time.Second,
		// Deferred page data streams after the shell, so writes are not bounded.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go handleShutdown(srv, metricsSrv, s, collector, done)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            cfg.Port,
		MetricsPort:     cfg.MetricsPort,
		MetricsEnabled:  cfg.MetricsEnabled,
		TLS:             cfg.TLSEnabled(),
		Mode:            cfg.Mode(),
		AppVersion:      s.app.LoadContext().AppVersion,
		StartupDuration: time.Since(startTime),
	})

	if cfg.TLSEnabled() {
		err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

func handleShutdown(srv, metricsSrv *http.Server, s *server, collector *metrics.Collector, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.watcher != nil {
		startup.LogShutdownStep("Stopping asset watcher")
		s.watcher.Stop()
		startup.LogShutdownStepComplete("Asset watcher stopped")
	}

	if s.hub != nil {
		startup.LogShutdownStep("Closing live reload connections")
		s.hub.Close()
		startup.LogShutdownStepComplete("Live reload closed")
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
