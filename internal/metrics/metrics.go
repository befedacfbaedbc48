package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_server_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "page_server_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "page_server_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Static asset metrics
var (
	StaticRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_server_static_requests_total",
			Help: "Static responder lookups by cache class (immutable/public) and result (hit/miss)",
		},
		[]string{"class", "result"},
	)

	AssetBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_server_asset_builds_total",
			Help: "Total number of asset builds",
		},
		[]string{"status"},
	)

	AssetBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "page_server_asset_build_duration_seconds",
			Help:    "Asset build duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	ManifestEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "page_server_manifest_entries",
			Help: "Number of fingerprinted assets in the active build manifest",
		},
	)
)

// Session metrics
var (
	SessionCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_server_session_commits_total",
			Help: "Session cookie writes by outcome (saved/destroyed/error/late)",
		},
		[]string{"outcome"},
	)

	SessionDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "page_server_session_decode_errors_total",
			Help: "Session cookies that failed signature verification or decoding",
		},
	)
)

// Page metrics
var (
	LoaderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "page_server_loader_duration_seconds",
			Help:    "Loader execution time in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"route"},
	)

	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_server_actions_total",
			Help: "Total number of actions by route and status",
		},
		[]string{"route", "status"},
	)

	DeferredResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "page_server_deferred_resolve_duration_seconds",
			Help:    "Time from shell flush until a deferred value was streamed",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_server_uploads_total",
			Help: "Uploaded files by detected top-level MIME type",
		},
		[]string{"kind"},
	)
)

// Development metrics
var (
	LiveReloadClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "page_server_livereload_clients",
			Help: "Connected live reload websocket clients",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_server_watcher_events_total",
			Help: "File system events seen by the development asset watcher",
		},
		[]string{"op"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "page_server_watcher_errors_total",
			Help: "Errors reported by the development asset watcher",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "page_server_watched_directories",
			Help: "Directories registered with the development asset watcher",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "page_server_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version", "mode"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion, mode string) {
	AppInfo.WithLabelValues(version, commit, goVersion, mode).Set(1)
}
