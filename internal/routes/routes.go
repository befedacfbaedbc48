package routes

import (
	"embed"
	"io/fs"

	"github.com/jonboulle/clockwork"

	"page-server/internal/page"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplatePatterns selects the route templates inside Templates.
var TemplatePatterns = []string{"templates/*.html"}

// Templates returns the embedded route templates.
func Templates() fs.FS {
	return templateFS
}

// All returns the route table. clock drives the artificial delays of the
// demo data.
func All(clock clockwork.Clock) []page.Route {
	return []page.Route{
		NewIndex(clock).Route(),
	}
}
