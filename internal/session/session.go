package session

import (
	"context"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/gorilla/sessions"
)

func init() {
	// Flash values are stored as []any inside the gob-encoded cookie.
	gob.Register([]any{})
}

// Session is the per-request view of the cookie values.
type Session struct {
	mu        sync.Mutex
	raw       *sessions.Session
	modified  bool
	destroyed bool
	committed bool
	late      bool
}

func newSession(raw *sessions.Session) *Session {
	return &Session{raw: raw}
}

// IsNew reports whether the request carried no valid session cookie.
func (s *Session) IsNew() bool {
	return s.raw.IsNew
}

// Modified reports whether the session must be written back.
func (s *Session) Modified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modified || s.destroyed
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.raw.Values[key]
	return v, ok
}

// GetString returns the value under key formatted as a string, or "".
func (s *Session) GetString(key string) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Has reports whether key is set.
func (s *Session) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores a value. Values must be gob-encodable. Setting a value on a
// destroyed session starts a fresh one holding only the values set since.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = false
	s.raw.Values[key] = value
	s.touch()
}

// Unset removes key. Removing a missing key does not modify the session.
func (s *Session) Unset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.raw.Values[key]; !ok {
		return
	}
	delete(s.raw.Values, key)
	s.touch()
}

// Keys returns the string keys in sorted order.
func (s *Session) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.raw.Values))
	for k := range s.raw.Values {
		if str, ok := k.(string); ok {
			keys = append(keys, str)
		}
	}
	sort.Strings(keys)
	return keys
}

// Flash stores a value that is removed by the next GetFlash for key.
func (s *Session) Flash(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = false
	s.raw.AddFlash(value, key)
	s.touch()
}

// GetFlash returns and clears the flashed values for key. Reading an empty
// flash does not modify the session.
func (s *Session) GetFlash(key string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	flashes := s.raw.Flashes(key)
	if len(flashes) == 0 {
		return nil
	}
	s.touch()
	return flashes
}

// Destroy clears all values and expires the cookie unless a later Set or
// Flash writes to the session again.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.raw.Values {
		delete(s.raw.Values, k)
	}
	s.destroyed = true
	s.touch()
}

// touch must be called with mu held.
func (s *Session) touch() {
	s.modified = true
	if s.committed && !s.late {
		s.late = true
		lateWrites.Inc()
	}
}

func (s *Session) lateWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.late
}

type contextKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by the middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
