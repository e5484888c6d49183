package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/notify"
)

// EmergencyStopper halts all further trade admission.
type EmergencyStopper interface {
	EmergencyStop(ctx context.Context, reason string)
	State() domain.RiskState
}

// Alerter delivers operator alerts.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// RiskHandler serves risk control endpoints.
type RiskHandler struct {
	risk    EmergencyStopper
	alerter Alerter
	logger  *slog.Logger
}

// NewRiskHandler creates a RiskHandler. alerter may be nil.
func NewRiskHandler(risk EmergencyStopper, alerter Alerter, logger *slog.Logger) *RiskHandler {
	return &RiskHandler{risk: risk, alerter: alerter, logger: logHandler(logger, "risk")}
}

type emergencyStopRequest struct {
	Reason string `json:"reason"`
}

// EmergencyStop engages the emergency stop. The body is optional.
// POST /api/risk/emergency-stop
func (h *RiskHandler) EmergencyStop(w http.ResponseWriter, r *http.Request) {
	if h.risk == nil {
		writeError(w, http.StatusServiceUnavailable, "risk manager not running")
		return
	}

	var req emergencyStopRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual stop via API"
	}

	h.risk.EmergencyStop(r.Context(), reason)
	if h.alerter != nil {
		if err := h.alerter.Notify(r.Context(), notify.EventEmergencyStop, "Emergency stop", reason); err != nil {
			h.logger.WarnContext(r.Context(), "emergency stop alert failed", slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "stopped",
		"reason": reason,
		"risk":   h.risk.State(),
	})
}
