package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/engine"
	"github.com/alanyoungcy/polyarb/internal/executor"
	"github.com/alanyoungcy/polyarb/internal/notify"
	"github.com/alanyoungcy/polyarb/internal/server/handler"
	"github.com/alanyoungcy/polyarb/internal/service"
	"github.com/alanyoungcy/polyarb/internal/slippage"
)

const testKey = "secret"

type recordingAlerter struct{ events []string }

func (a *recordingAlerter) Notify(_ context.Context, event, _, _ string) error {
	a.events = append(a.events, event)
	return nil
}

type testEnv struct {
	srv     *Server
	risk    *service.RiskManager
	tracker *engine.Tracker
	alerter *recordingAlerter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rng := rand.New(rand.NewPCG(1, 2))

	env := &testEnv{
		risk:    service.NewRiskManager(service.DefaultRiskConfig(), logger),
		tracker: engine.NewTracker(time.Minute),
		alerter: &recordingAlerter{},
	}
	exec := executor.New(executor.DefaultConfig(), slippage.New(slippage.DefaultConfig(), rng), rng, logger)

	env.srv = NewServer(
		Config{Port: 0, APIKey: testKey},
		Handlers{
			Health:        handler.NewHealthHandler(nil, env.tracker, 0, logger),
			Status:        handler.NewStatusHandler("paper", "file", []string{"multi_outcome_spread"}, time.Now()),
			Opportunities: handler.NewOpportunityHandler(env.tracker, nil, nil, logger),
			Stats:         handler.NewStatsHandler(exec, env.risk),
			Risk:          handler.NewRiskHandler(env.risk, env.alerter, logger),
			Pipeline:      handler.NewPipelineHandler(nil, logger),
		},
		nil,
		nil,
		logger,
	)
	return env
}

func (e *testEnv) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/health", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/opportunities", "", false).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/opportunities", "", true).Code)
}

func TestServer_ListsTrackedOpportunities(t *testing.T) {
	env := newTestEnv(t)
	env.tracker.Observe([]domain.Opportunity{{
		Type:      domain.OppMultiOutcome,
		Primary:   domain.MarketRef{ID: "m1"},
		ProfitPct: 4,
	}})

	rec := env.do(http.MethodGet, "/api/opportunities", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count         int                         `json:"count"`
		Opportunities []domain.TrackedOpportunity `json:"opportunities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "m1", body.Opportunities[0].Opportunity.Primary.ID)
}

func TestServer_EmergencyStop(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/risk/emergency-stop", `{"reason":"drill"}`, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.risk.State().EmergencyStop)
	assert.Zero(t, env.risk.Limits().MaxTotalExposure)
	assert.Equal(t, []string{notify.EventEmergencyStop}, env.alerter.events)
	assert.Contains(t, rec.Body.String(), `"reason":"drill"`)
}

func TestServer_EmergencyStopRejectsBadBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/risk/emergency-stop", `{not json`, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.risk.State().EmergencyStop)
}

func TestServer_Stats(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/stats", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "performance")
	assert.Contains(t, body, "risk")
	assert.Contains(t, body, "limits")

	var perf executor.Stats
	require.NoError(t, json.Unmarshal(body["performance"], &perf))
	assert.InDelta(t, 1000, perf.Bankroll, 1e-9)
}

func TestServer_MetricsIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/metrics", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_PipelineTriggerUnavailable(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/pipeline/trigger", "", true)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()

	env.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
