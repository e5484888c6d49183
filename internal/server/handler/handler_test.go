package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"?limit=10", 10},
		{"?limit=0", 50},
		{"?limit=abc", 50},
		{"?limit=9999", 500},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
			assert.Equal(t, tt.want, parseLimit(r))
		})
	}
}

type failingLister struct{}

func (failingLister) ListRecent(context.Context, int) ([]domain.Opportunity, error) {
	return nil, errors.New("db down")
}

type emptyTracked struct{}

func (emptyTracked) Snapshot() []domain.TrackedOpportunity { return nil }

func TestOpportunityHandler_History(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("no store", func(t *testing.T) {
		h := NewOpportunityHandler(emptyTracked{}, nil, nil, logger)
		rec := httptest.NewRecorder()
		h.ListExecutions(rec, httptest.NewRequest(http.MethodGet, "/api/executions", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"executions":[]}`, rec.Body.String())
	})

	t.Run("store error", func(t *testing.T) {
		h := NewOpportunityHandler(emptyTracked{}, failingLister{}, nil, logger)
		rec := httptest.NewRecorder()
		h.ListRecent(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities/recent", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

type stubTrigger struct{ queued bool }

func (s stubTrigger) Trigger() bool { return s.queued }

func TestPipelineHandler_Trigger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewPipelineHandler(stubTrigger{queued: true}, logger)
	rec := httptest.NewRecorder()

	h.TriggerPipeline(rec, httptest.NewRequest(http.MethodPost, "/api/pipeline/trigger", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queued":true`)
}

func TestStatsHandler_ScanMode(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStatsHandler(nil, nil).GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

type fixedCycles struct{ last time.Time }

func (c fixedCycles) LastCycle() time.Time { return c.last }

type fixedCount int

func (c fixedCount) Len() int { return int(c) }

func TestHealthCheck(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		last   time.Time
		code   int
		status string
	}{
		{"before first cycle", time.Time{}, http.StatusOK, `"status":"starting"`},
		{"fresh", now.Add(-30 * time.Second), http.StatusOK, `"status":"ok"`},
		{"stale", now.Add(-5 * time.Minute), http.StatusServiceUnavailable, `"status":"stale"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(fixedCycles{last: tt.last}, fixedCount(3), 90*time.Second,
				slog.New(slog.NewTextHandler(io.Discard, nil)))
			h.now = func() time.Time { return now }

			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.status)
			assert.Contains(t, rec.Body.String(), `"tracked_opportunities":3`)
		})
	}
}
