package assets

import (
	"sync/atomic"

	"page-server/internal/metrics"
)

// Store holds the active manifest and is safe for concurrent use.
type Store struct {
	current atomic.Pointer[Manifest]
}

// NewStore returns a store holding m, which may be nil until the first build.
func NewStore(m *Manifest) *Store {
	s := &Store{}
	if m != nil {
		s.Swap(m)
	}
	return s
}

// Current returns the active manifest or nil.
func (s *Store) Current() *Manifest {
	return s.current.Load()
}

// Swap replaces the active manifest.
func (s *Store) Swap(m *Manifest) {
	s.current.Store(m)
	metrics.ManifestEntries.Set(float64(len(m.Entries)))
}

// Version returns the active manifest version, or "" before the first build.
func (s *Store) Version() string {
	if m := s.Current(); m != nil {
		return m.Version
	}
	return ""
}

// Ready reports whether a manifest has been loaded.
func (s *Store) Ready() bool {
	return s.Current() != nil
}

// GetStats implements metrics.StatsProvider.
func (s *Store) GetStats() metrics.Stats {
	m := s.Current()
	if m == nil {
		return metrics.Stats{}
	}
	return metrics.Stats{ManifestEntries: len(m.Entries), AppVersion: m.Version}
}
