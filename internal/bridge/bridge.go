// Package bridge hands requests to the page layer with a per-request load
// context.
package bridge

import (
	"context"
	"net/http"
)

// DevVersion is the application version reported outside production.
const DevVersion = "dev"

// LoadContext is the value loaders and actions receive from the server.
type LoadContext struct {
	// AppVersion is the build manifest version in production and DevVersion otherwise.
	AppVersion string
}

// VersionSource provides the active build manifest version.
type VersionSource interface {
	Version() string
}

// Bridge injects the LoadContext and delegates to the page layer.
type Bridge struct {
	production bool
	versions   VersionSource
	app        http.Handler
}

// New returns a bridge in front of app. versions is only consulted in production.
func New(production bool, versions VersionSource, app http.Handler) *Bridge {
	return &Bridge{production: production, versions: versions, app: app}
}

// LoadContext returns the context every request currently receives.
func (b *Bridge) LoadContext() LoadContext {
	if b.production {
		return LoadContext{AppVersion: b.versions.Version()}
	}
	return LoadContext{AppVersion: DevVersion}
}

func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := WithLoadContext(r.Context(), b.LoadContext())
	b.app.ServeHTTP(w, r.WithContext(ctx))
}

type contextKey struct{}

// WithLoadContext attaches lc to ctx.
func WithLoadContext(ctx context.Context, lc LoadContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext returns the load context attached by the bridge. Requests that
// did not pass through a bridge get the development context.
func FromContext(ctx context.Context) LoadContext {
	if lc, ok := ctx.Value(contextKey{}).(LoadContext); ok {
		return lc
	}
	return LoadContext{AppVersion: DevVersion}
}
