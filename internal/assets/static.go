package assets

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"page-server/internal/logging"
	"page-server/internal/metrics"
)

// Cache-Control values applied by the Responder.
const (
	ImmutableCacheControl = "public, max-age=31536000, immutable" // 1 year
	PublicCacheControl    = "public, max-age=3600"                // 1 hour
)

const immutablePrefix = "/" + AssetsDir + "/"

// Responder serves files from the client build root.
type Responder struct {
	root fs.FS
}

// NewResponder serves files below dir.
func NewResponder(dir string) *Responder {
	return NewResponderFS(os.DirFS(dir))
}

// NewResponderFS serves files from fsys.
func NewResponderFS(fsys fs.FS) *Responder {
	return &Responder{root: fsys}
}

// Middleware serves a matching file or calls next with the request unchanged.
func (s *Responder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		class := "public"
		cacheControl := PublicCacheControl
		if strings.HasPrefix(r.URL.Path, immutablePrefix) {
			class = "immutable"
			cacheControl = ImmutableCacheControl
		}

		if !s.serve(w, r, cacheControl) {
			metrics.StaticRequestsTotal.WithLabelValues(class, "miss").Inc()
			next.ServeHTTP(w, r)
			return
		}
		metrics.StaticRequestsTotal.WithLabelValues(class, "hit").Inc()
	})
}

// serve writes the file and reports whether one was found.
func (s *Responder) serve(w http.ResponseWriter, r *http.Request, cacheControl string) bool {
	rel, ok := relPath(r.URL.Path)
	if !ok {
		return false
	}

	f, err := s.root.Open(rel)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	content, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			logging.Warn("Failed to read static file %s: %v", rel, err)
			return false
		}
		content = bytes.NewReader(data)
	}

	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
	return true
}

// WellKnownDir is the one dot-directory that is copied and served
// (RFC 8615), for files such as security.txt.
const WellKnownDir = ".well-known"

// hiddenSegment reports whether the i-th path segment names a dot-file or
// dot-directory other than a top-level WellKnownDir.
func hiddenSegment(i int, seg string) bool {
	return strings.HasPrefix(seg, ".") && !(i == 0 && seg == WellKnownDir)
}

// relPath converts a URL path into an fs.FS name. It refuses anything that
// could leave the root or expose dot-files.
func relPath(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath, "/") {
		return "", false
	}
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", false
	}
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}
	for i, seg := range strings.Split(rel, "/") {
		if seg == "" || hiddenSegment(i, seg) {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if !fs.ValidPath(clean) {
		return "", false
	}
	return clean, true
}
