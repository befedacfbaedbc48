package handlers

import (
	"net/http"
	"runtime"
	"time"

	"page-server/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status          string `json:"status"`
	Ready           bool   `json:"ready"`
	Mode            string `json:"mode"`
	Version         string `json:"version"`
	AppVersion      string `json:"appVersion"`
	ManifestVersion string `json:"manifestVersion,omitempty"`
	Uptime          string `json:"uptime"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	ready := h.manifests.Ready()
	response := HealthResponse{
		Ready:           ready,
		Mode:            h.mode,
		Version:         startup.Version,
		AppVersion:      h.contexts.LoadContext().AppVersion,
		ManifestVersion: h.manifests.Version(),
		Uptime:          h.clock.Since(h.started).Round(time.Second).String(),
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	if ready {
		response.Status = statusHealthy
		w.WriteHeader(http.StatusOK)
	} else {
		response.Status = statusStarting
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only once a build manifest is loaded
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.manifests.Ready() {
		writeJSONStatus(w, http.StatusOK, "ready")
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
}
