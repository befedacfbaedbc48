package startup

import (
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-server/internal/session"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

// clearEnv blanks every variable Load reads so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "build", cfg.BuildDir)
	assert.Equal(t, "app/assets", cfg.SourceDir)
	assert.Equal(t, "public", cfg.PublicDir)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 300*time.Millisecond, cfg.WatchInterval)
	assert.Equal(t, filepath.Join("build", "client"), cfg.ClientDir)
	assert.Equal(t, filepath.Join("build", "server", "manifest.json"), cfg.ManifestPath)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, ModeDevelopment, cfg.Mode())
	assert.False(t, cfg.TLSEnabled())
	assert.Zero(t, cfg.MemoryLimit)
	assert.InDelta(t, 0.85, cfg.MemoryRatio, 1e-9)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("BUILD_DIR", "/srv/build")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("WATCH_INTERVAL", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchInterval)
	assert.Equal(t, "/srv/build/server/manifest.json", filepath.ToSlash(cfg.ManifestPath))
	assert.NoError(t, cfg.RequireSessionSecret())

	opts := cfg.BuildOptions()
	assert.Equal(t, cfg.ClientDir, opts.OutDir)
	assert.Equal(t, cfg.ManifestPath, opts.ManifestPath)
}

func TestLoadMemoryLimit(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEMORY_LIMIT", "1073741824")
	t.Setenv("MEMORY_RATIO", "0.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<30), cfg.MemoryLimit)
	assert.InDelta(t, 0.5, cfg.MemoryRatio, 1e-9)
}

func TestTestModeIsDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NODE_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsProduction())
}

func TestRequireSessionSecret(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err, "loading must not require the secret")

	err = cfg.RequireSessionSecret()
	assert.True(t, errors.Is(err, session.ErrMissingSecret))
	assert.EqualError(t, err, "SESSION_SECRET is not defined")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"port", "PORT", "http", "PORT"},
		{"log level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"tls pair", "TLS_CERT_FILE", "cert.pem", "TLS_KEY_FILE"},
		{"interval", "WATCH_INTERVAL", "0s", "WATCH_INTERVAL"},
		{"memory ratio", "MEMORY_RATIO", "1.5", "MEMORY_RATIO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.NotFoundHandler())

	routes, err := GetRoutes(r)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, RouteInfo{Method: http.MethodGet, Path: "/healthz"}, routes[0])
	assert.Equal(t, RouteInfo{Method: "*", Path: "/"}, routes[1])
}

func TestGetRouteGroup(t *testing.T) {
	assert.Equal(t, "healthz", getRouteGroup("/healthz"))
	assert.Equal(t, "app", getRouteGroup("/__livereload"))
	assert.Equal(t, "", getRouteGroup("/"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", maskSecret(""))
	assert.Equal(t, "(set, 6 bytes)", maskSecret("s3cret"))
}
