package handlers

import (
	"net/http"

	"page-server/internal/startup"
)

// VersionResponse is the build information plus the version pages see.
type VersionResponse struct {
	startup.BuildInfo
	AppVersion string `json:"appVersion"`
	Mode       string `json:"mode"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, VersionResponse{
		BuildInfo:  startup.GetBuildInfo(),
		AppVersion: h.contexts.LoadContext().AppVersion,
		Mode:       h.mode,
	})
}
