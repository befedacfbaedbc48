package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-server/internal/assets"
	"page-server/internal/livereload"
	"page-server/internal/middleware"
	"page-server/internal/session"
	"page-server/internal/startup"
)

// testConfig lays out a small project under a temp dir.
func testConfig(t *testing.T, env string) *startup.Config {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"app/assets/app.css":         "body { margin: 0 }",
		"app/assets/entry.client.js": "console.log('hi')",
		"public/robots.txt":          "User-agent: *",
	}
	for name, contents := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(contents), 0o644))
	}

	build := filepath.Join(root, "build")
	return &startup.Config{
		Env:           env,
		Port:          "3000",
		SessionSecret: "test-secret",
		BuildDir:      build,
		SourceDir:     filepath.Join(root, "app", "assets"),
		PublicDir:     filepath.Join(root, "public"),
		MetricsPort:   "9090",
		WatchInterval: time.Second,
		ClientDir:     filepath.Join(build, "client"),
		ManifestPath:  filepath.Join(build, "server", "manifest.json"),
	}
}

func newTestServer(t *testing.T, cfg *startup.Config) *server {
	t.Helper()
	s, err := newServer(cfg, clockwork.NewFakeClock())
	require.NoError(t, err)
	return s
}

func serve(s *server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestServeFingerprintedAsset(t *testing.T) {
	s := newTestServer(t, testConfig(t, "development"))
	target := s.manifests.Current().Entries["app.css"]
	require.NotEmpty(t, target)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/"+target, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assets.ImmutableCacheControl, rec.Header().Get("Cache-Control"))
	assert.Equal(t, "body { margin: 0 }", rec.Body.String())
	assert.Empty(t, rec.Header().Values("Set-Cookie"), "static hits skip the session")
}

func TestServePublicFile(t *testing.T) {
	s := newTestServer(t, testConfig(t, "development"))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assets.PublicCacheControl, rec.Header().Get("Cache-Control"))
}

func TestDevelopmentUploadAction(t *testing.T) {
	s := newTestServer(t, testConfig(t, "development"))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := serve(s, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"fileName":"photo.png"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.False(t, cookies[0].Secure)
}

func TestUnknownPathRendersNotFound(t *testing.T) {
	s := newTestServer(t, testConfig(t, "development"))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Found")
	assert.Contains(t, rec.Body.String(), livereload.Path, "development pages carry the reload client")
}

func TestTraversalNeverLeavesClientDir(t *testing.T) {
	cfg := testConfig(t, "development")
	s := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../server/manifest.json"
	rec := serve(s, req)

	assert.NotContains(t, rec.Body.String(), `"entries"`)
}

func TestDevelopmentVersionIsDev(t *testing.T) {
	s := newTestServer(t, testConfig(t, "test"))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "dev", resp["appVersion"])
	assert.Equal(t, "development", resp["mode"])
}

func TestProductionUsesManifestVersion(t *testing.T) {
	cfg := testConfig(t, startup.ModeProduction)
	m, err := assets.Build(cfg.BuildOptions())
	require.NoError(t, err)

	s := newTestServer(t, cfg)
	assert.Nil(t, s.watcher)
	assert.Nil(t, s.hub)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/version", nil))
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, m.Version, resp["appVersion"])

	rec = serve(s, httptest.NewRequest(http.MethodGet, livereload.Path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no live reload in production")
}

func TestLiveReloadThroughMiddleware(t *testing.T) {
	s := newTestServer(t, testConfig(t, "development"))
	require.NotNil(t, s.hub)
	t.Cleanup(s.hub.Close)

	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + livereload.Path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	assert.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	s.hub.Reload("v2")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg livereload.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, livereload.Message{Type: "reload", Version: "v2"}, msg)
}

func TestProductionSessionCookieIsSecure(t *testing.T) {
	cfg := testConfig(t, startup.ModeProduction)
	_, err := assets.Build(cfg.BuildOptions())
	require.NoError(t, err)
	s := newTestServer(t, cfg)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("x"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := serve(s, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].Secure)
}

func TestProductionRequiresManifest(t *testing.T) {
	_, err := newServer(testConfig(t, startup.ModeProduction), clockwork.NewFakeClock())

	require.Error(t, err)
	assert.True(t, errors.Is(err, assets.ErrNoManifest))
}

func TestMissingSecretIsFatal(t *testing.T) {
	cfg := testConfig(t, "development")
	cfg.SessionSecret = ""

	_, err := newServer(cfg, clockwork.NewFakeClock())

	assert.True(t, errors.Is(err, session.ErrMissingSecret))
}

func TestReadinessProbe(t *testing.T) {
	s := newTestServer(t, testConfig(t, "development"))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestSecretCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"secret"})

	require.NoError(t, cmd.Execute())

	key, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Len(t, key, secretBytes)
}

func TestBuildCommand(t *testing.T) {
	cfg := testConfig(t, "development")
	t.Setenv("NODE_ENV", "")
	t.Setenv("BUILD_DIR", cfg.BuildDir)
	t.Setenv("SOURCE_DIR", cfg.SourceDir)
	t.Setenv("PUBLIC_DIR", cfg.PublicDir)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"build"})

	require.NoError(t, cmd.Execute())

	m, err := assets.Load(cfg.ManifestPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), m.Version)
	assert.Contains(t, out.String(), "app.css -> "+m.Entries["app.css"])
}

func TestBuildCommandFailsWithoutSources(t *testing.T) {
	root := t.TempDir()
	t.Setenv("BUILD_DIR", filepath.Join(root, "build"))
	t.Setenv("SOURCE_DIR", filepath.Join(root, "missing"))
	t.Setenv("PUBLIC_DIR", "")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"build"})

	assert.Error(t, cmd.Execute())
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, startup.Version+"\n", out.String())
}
