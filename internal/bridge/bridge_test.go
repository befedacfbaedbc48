package bridge

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedVersion string

func (v fixedVersion) Version() string { return string(v) }

func captureVersion(b *Bridge, path string) string {
	var got string
	b.app = http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context()).AppVersion
	})
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	b.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

var paths = []string{"/", "/about", "/assets/missing.js", "/deep/nested/route?x=1"}

func TestDevelopmentAlwaysUsesSentinel(t *testing.T) {
	b := New(false, fixedVersion("3f2a9c1d"), nil)

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			assert.Equal(t, DevVersion, captureVersion(b, p))
		})
	}
}

func TestProductionUsesManifestVersion(t *testing.T) {
	b := New(true, fixedVersion("3f2a9c1d"), nil)

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			assert.Equal(t, "3f2a9c1d", captureVersion(b, p))
		})
	}
}

func TestLoadContext(t *testing.T) {
	assert.Equal(t, LoadContext{AppVersion: "dev"}, New(false, nil, nil).LoadContext())
	assert.Equal(t, LoadContext{AppVersion: "v2"}, New(true, fixedVersion("v2"), nil).LoadContext())
}

func TestFromContextWithoutBridge(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Equal(t, DevVersion, FromContext(req.Context()).AppVersion)
}

func TestBridgeDelegatesResponse(t *testing.T) {
	b := New(false, nil, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	b.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, http.StatusAccepted, w.Code)
}
