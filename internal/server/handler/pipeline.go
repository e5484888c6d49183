package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// CycleTrigger requests an out-of-band detection cycle.
type CycleTrigger interface {
	Trigger() bool
}

// PipelineHandler serves pipeline trigger endpoints.
type PipelineHandler struct {
	trigger CycleTrigger
	logger  *slog.Logger
}

// NewPipelineHandler creates a PipelineHandler. A nil trigger makes the
// endpoint answer 503.
func NewPipelineHandler(trigger CycleTrigger, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{trigger: trigger, logger: logHandler(logger, "pipeline")}
}

// TriggerPipeline enqueues one detection cycle. A request made while another
// is still pending is coalesced into it.
// POST /api/pipeline/trigger
func (h *PipelineHandler) TriggerPipeline(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not running")
		return
	}
	queued := h.trigger.Trigger()
	h.logger.InfoContext(r.Context(), "pipeline trigger requested", slog.Bool("queued", queued))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
