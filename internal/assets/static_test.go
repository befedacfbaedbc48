package assets

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"assets/app-5d41402a.css":         {Data: []byte("body{}")},
		"assets/entry.client-7d793037.js": {Data: []byte("console.log(1)")},
		"favicon.ico":                     {Data: []byte("icon")},
		"robots.txt":                      {Data: []byte("User-agent: *")},
		"images/logo.svg":                 {Data: []byte("<svg/>")},
		".env":                            {Data: []byte("SESSION_SECRET=x")},
		".well-known/security.txt":        {Data: []byte("Contact: mailto:security@example.com")},
		".git/config":                     {Data: []byte("[core]")},
		"images/.well-known/x.txt":        {Data: []byte("nested")},
	}
}

func nextHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*called = true
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestResponderImmutableAssetsGetOneYear(t *testing.T) {
	s := NewResponderFS(testFS())

	for _, p := range []string{"/assets/app-5d41402a.css", "/assets/entry.client-7d793037.js"} {
		t.Run(p, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(http.MethodGet, p, http.NoBody)
			w := httptest.NewRecorder()

			s.Middleware(nextHandler(&called)).ServeHTTP(w, req)

			assert.False(t, called, "next handler should not run on a hit")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, ImmutableCacheControl, w.Header().Get("Cache-Control"))
			assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=31536000")
		})
	}
}

func TestResponderPublicFilesGetOneHour(t *testing.T) {
	s := NewResponderFS(testFS())

	for _, p := range []string{"/favicon.ico", "/robots.txt", "/images/logo.svg", "/.well-known/security.txt"} {
		t.Run(p, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(http.MethodGet, p, http.NoBody)
			w := httptest.NewRecorder()

			s.Middleware(nextHandler(&called)).ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, PublicCacheControl, w.Header().Get("Cache-Control"))
			assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=3600")
		})
	}
}

func TestResponderServesBody(t *testing.T) {
	s := NewResponderFS(testFS())
	var called bool

	req := httptest.NewRequest(http.MethodGet, "/robots.txt", http.NoBody)
	w := httptest.NewRecorder()
	s.Middleware(nextHandler(&called)).ServeHTTP(w, req)

	assert.Equal(t, "User-agent: *", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestResponderMissPassesThrough(t *testing.T) {
	s := NewResponderFS(testFS())

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"root", http.MethodGet, "/"},
		{"unknown page", http.MethodGet, "/about"},
		{"missing asset", http.MethodGet, "/assets/missing-00000000.js"},
		{"directory", http.MethodGet, "/images"},
		{"directory with slash", http.MethodGet, "/images/"},
		{"post to existing file", http.MethodPost, "/robots.txt"},
		{"dot file", http.MethodGet, "/.env"},
		{"dot directory", http.MethodGet, "/.git/config"},
		{"nested well-known", http.MethodGet, "/images/.well-known/x.txt"},
		{"traversal", http.MethodGet, "/assets/../../etc/passwd"},
		{"encoded backslash", http.MethodGet, "/assets/..%5C..%5Cetc"},
		{"double slash", http.MethodGet, "//etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			req := httptest.NewRequest(tt.method, "/", http.NoBody)
			req.URL.Path = tt.path
			w := httptest.NewRecorder()

			s.Middleware(nextHandler(&called)).ServeHTTP(w, req)

			assert.True(t, called, "next handler should run on a miss")
			assert.Equal(t, http.StatusTeapot, w.Code)
			assert.Empty(t, w.Header().Get("Cache-Control"))
		})
	}
}

func TestResponderHead(t *testing.T) {
	s := NewResponderFS(testFS())
	var called bool

	req := httptest.NewRequest(http.MethodHead, "/assets/app-5d41402a.css", http.NoBody)
	w := httptest.NewRecorder()
	s.Middleware(nextHandler(&called)).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ImmutableCacheControl, w.Header().Get("Cache-Control"))
}

func TestRelPath(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"/robots.txt", "robots.txt", true},
		{"/assets/app.css", "assets/app.css", true},
		{"/", "", false},
		{"relative", "", false},
		{"/a/../b", "", false},
		{"/a/./b", "", false},
		{"/a\x00b", "", false},
		{"/.git/config", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := relPath(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
