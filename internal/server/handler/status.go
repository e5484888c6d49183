package handler

import (
	"net/http"
	"time"
)

// StatusHandler reports the run mode, the registered detectors, and uptime.
type StatusHandler struct {
	Mode      string
	Source    string
	Detectors []string
	StartedAt time.Time
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode, source string, detectors []string, startedAt time.Time) *StatusHandler {
	return &StatusHandler{Mode: mode, Source: source, Detectors: detectors, StartedAt: startedAt}
}

// GetStatus responds with the current run mode and detector set.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"source":         h.Source,
		"detectors":      h.Detectors,
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	})
}
