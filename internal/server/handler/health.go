package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// CycleClock reports when the last detection cycle completed.
type CycleClock interface {
	LastCycle() time.Time
}

// TrackedCounter reports the size of the tracked-opportunity set.
type TrackedCounter interface {
	Len() int
}

// HealthHandler serves the liveness endpoint. The process is healthy while
// detection cycles keep completing.
type HealthHandler struct {
	cycles     CycleClock
	tracked    TrackedCounter
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewHealthHandler creates a HealthHandler. cycles and tracked may be nil; a
// zero staleAfter never reports stale.
func NewHealthHandler(cycles CycleClock, tracked TrackedCounter, staleAfter time.Duration, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		cycles:     cycles,
		tracked:    tracked,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger,
	}
}

type healthResponse struct {
	Status          string   `json:"status"`
	Timestamp       string   `json:"timestamp"`
	LastCycle       string   `json:"last_cycle,omitempty"`
	CycleAgeSeconds *float64 `json:"cycle_age_seconds,omitempty"`
	Tracked         *int     `json:"tracked_opportunities,omitempty"`
}

// HealthCheck reports "starting" before the first cycle, "ok" while cycles
// are fresh, and "stale" with 503 once none has completed within
// staleAfter.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := healthResponse{Status: "ok", Timestamp: now.UTC().Format(time.RFC3339)}
	code := http.StatusOK

	if h.tracked != nil {
		n := h.tracked.Len()
		resp.Tracked = &n
	}
	if h.cycles != nil {
		last := h.cycles.LastCycle()
		if last.IsZero() {
			resp.Status = "starting"
		} else {
			age := now.Sub(last)
			secs := age.Seconds()
			resp.LastCycle = last.UTC().Format(time.RFC3339)
			resp.CycleAgeSeconds = &secs
			if h.staleAfter > 0 && age > h.staleAfter {
				resp.Status = "stale"
				code = http.StatusServiceUnavailable
				h.logger.WarnContext(r.Context(), "detection cycles stale", slog.Duration("age", age))
			}
		}
	}
	writeJSON(w, code, resp)
}
