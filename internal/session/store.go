package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"page-server/internal/logging"
	"page-server/internal/metrics"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "session"
	// MaxAge is the cookie lifetime in seconds. A client that does not come
	// back within 30 days loses its session.
	MaxAge = 60 * 60 * 24 * 30

	hashKeyInfo   = "page-server session signing"
	hashKeyLength = 64
)

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("SESSION_SECRET is not defined")

var lateWrites = metrics.SessionCommitsTotal.WithLabelValues("late")

// Store signs and verifies session cookies.
type Store struct {
	cookies *sessions.CookieStore
}

// NewStore derives the signing key from secret. secure marks the cookie
// Secure and should be true only in production.
func NewStore(secret string, secure bool) (*Store, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	hashKey, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}

	cookies := sessions.NewCookieStore(hashKey)
	cookies.MaxAge(MaxAge)
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.Secure = secure
	cookies.Options.SameSite = http.SameSiteLaxMode

	return &Store{cookies: cookies}, nil
}

func deriveKey(secret string) ([]byte, error) {
	key := make([]byte, hashKeyLength)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(hashKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}
	return key, nil
}

// Load decodes the session cookie of r. A missing, expired or tampered
// cookie yields a new empty session.
func (st *Store) Load(r *http.Request) *Session {
	raw, err := st.cookies.New(r, CookieName)
	if err != nil {
		metrics.SessionDecodeErrors.Inc()
		logging.Debug("Discarding invalid session cookie: %v", err)
	}
	return newSession(raw)
}

// Commit writes the cookie when the session was modified. It runs at most
// once per session; later mutations are counted and dropped.
func (st *Store) Commit(w http.ResponseWriter, r *http.Request, s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed {
		return
	}
	s.committed = true

	if !s.modified && !s.destroyed {
		return
	}

	if s.destroyed {
		opts := *st.cookies.Options
		opts.MaxAge = -1
		s.raw.Options = &opts
	}

	if err := st.cookies.Save(r, w, s.raw); err != nil {
		metrics.SessionCommitsTotal.WithLabelValues("error").Inc()
		logging.Error("Failed to save session: %v", err)
		return
	}

	if s.destroyed {
		metrics.SessionCommitsTotal.WithLabelValues("destroyed").Inc()
	} else {
		metrics.SessionCommitsTotal.WithLabelValues("saved").Inc()
	}
}

// Middleware attaches the session to the request context and commits it
// before the first byte of the response.
func (st *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := st.Load(r)
		r = r.WithContext(WithSession(r.Context(), s))

		cw := &commitWriter{ResponseWriter: w}
		cw.commit = func() { st.Commit(w, r, s) }

		next.ServeHTTP(cw, r)

		cw.commitOnce()
		if s.lateWrite() {
			logging.Warn("Session modified after response headers were sent for %s; change dropped", r.URL.Path)
		}
	})
}

// commitWriter commits the session right before headers go out.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (cw *commitWriter) commitOnce() {
	cw.once.Do(cw.commit)
}

func (cw *commitWriter) WriteHeader(code int) {
	cw.commitOnce()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	cw.commitOnce()
	return cw.ResponseWriter.Write(b)
}

func (cw *commitWriter) Flush() {
	cw.commitOnce()
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (cw *commitWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
