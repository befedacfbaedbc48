package handlers

import (
	"time"

	"github.com/jonboulle/clockwork"

	"page-server/internal/bridge"
)

// ManifestStatus reports whether a build manifest is loaded.
type ManifestStatus interface {
	Ready() bool
	Version() string
}

// LoadContexts provides the load context pages currently receive.
type LoadContexts interface {
	LoadContext() bridge.LoadContext
}

type Handlers struct {
	manifests ManifestStatus
	contexts  LoadContexts
	mode      string
	clock     clockwork.Clock
	started   time.Time
}

// New returns handlers reporting on manifests and contexts. mode is the
// configured run mode.
func New(manifests ManifestStatus, contexts LoadContexts, mode string, clock clockwork.Clock) *Handlers {
	return &Handlers{
		manifests: manifests,
		contexts:  contexts,
		mode:      mode,
		clock:     clock,
		started:   clock.Now(),
	}
}
