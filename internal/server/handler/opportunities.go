package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// TrackedSource exposes the live tracked-opportunity set.
type TrackedSource interface {
	Snapshot() []domain.TrackedOpportunity
}

// OpportunityLister reads persisted opportunities.
type OpportunityLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error)
}

// ExecutionLister reads persisted paper executions.
type ExecutionLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ExecutionResult, error)
}

// OpportunityHandler serves opportunity and execution endpoints.
type OpportunityHandler struct {
	tracked TrackedSource
	opps    OpportunityLister
	execs   ExecutionLister
	logger  *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler. opps and execs may be
// nil, in which case the history endpoints return empty lists.
func NewOpportunityHandler(tracked TrackedSource, opps OpportunityLister, execs ExecutionLister, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{
		tracked: tracked,
		opps:    opps,
		execs:   execs,
		logger:  logHandler(logger, "opportunities"),
	}
}

type trackedResponse struct {
	Count         int                         `json:"count"`
	Opportunities []domain.TrackedOpportunity `json:"opportunities"`
}

// ListTracked returns the opportunities currently tracked, highest profit
// first.
// GET /api/opportunities
func (h *OpportunityHandler) ListTracked(w http.ResponseWriter, r *http.Request) {
	tracked := h.tracked.Snapshot()
	if limit := parseLimit(r); len(tracked) > limit {
		tracked = tracked[:limit]
	}
	writeJSON(w, http.StatusOK, trackedResponse{Count: len(tracked), Opportunities: tracked})
}

// ListRecent returns persisted opportunities, newest first.
// GET /api/opportunities/recent?limit=50
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	opps := []domain.Opportunity{}
	if h.opps != nil {
		got, err := h.opps.ListRecent(r.Context(), parseLimit(r))
		if err != nil {
			h.logger.ErrorContext(r.Context(), "list opportunities failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to list opportunities")
			return
		}
		if got != nil {
			opps = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps})
}

// ListExecutions returns persisted paper executions, newest first.
// GET /api/executions?limit=50
func (h *OpportunityHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	execs := []domain.ExecutionResult{}
	if h.execs != nil {
		got, err := h.execs.ListRecent(r.Context(), parseLimit(r))
		if err != nil {
			h.logger.ErrorContext(r.Context(), "list executions failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to list executions")
			return
		}
		if got != nil {
			execs = got
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": execs})
}
