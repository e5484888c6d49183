package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/engine"
	"github.com/alanyoungcy/polyarb/internal/executor"
	"github.com/alanyoungcy/polyarb/internal/notify"
	"github.com/alanyoungcy/polyarb/internal/service"
	"github.com/alanyoungcy/polyarb/internal/slippage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct{ fetches atomic.Int32 }

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Fetch(context.Context) ([]domain.MarketSnapshot, error) {
	s.fetches.Add(1)
	return []domain.MarketSnapshot{{ID: "m1", Question: "Will it rain?", YesPrice: 0.45, NoPrice: 0.50, Liquidity: 50_000}}, nil
}

type fixedDetector struct {
	name string
	opps []domain.Opportunity
	err  error
}

func (d *fixedDetector) Name() string { return d.name }

func (d *fixedDetector) Detect(context.Context, []domain.MarketSnapshot) ([]domain.Opportunity, error) {
	return d.opps, d.err
}

type heldLocks struct{}

func (heldLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type recordingNotifier struct{ events []string }

func (n *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.events = append(n.events, event)
	return nil
}

// cancelOnNotify cancels the cycle's context when the first alert goes out,
// which happens after detection and before trading.
type cancelOnNotify struct{ cancel context.CancelFunc }

func (n cancelOnNotify) Notify(context.Context, string, string, string) error {
	n.cancel()
	return nil
}

func underpriced() domain.Opportunity {
	return domain.Opportunity{
		Type:       domain.OppMultiOutcome,
		Primary:    domain.MarketRef{ID: "m1", Question: "Will it rain?", Price: 0.45, Liquidity: 50_000},
		Spread:     0.05,
		ProfitPct:  5,
		Confidence: 0.9,
		Direction:  domain.DirectionUnderpriced,
		MultiOutcome: &domain.MultiOutcomeDetail{
			YesPrice: 0.45, NoPrice: 0.50, Sum: 0.95,
		},
	}
}

type harness struct {
	orch   *Orchestrator
	source *fakeSource
	eng    *engine.Engine
	risk   *service.RiskManager
	exec   *executor.Executor
}

func newHarness(paper bool, locks domain.LockManager, n service.Notifier, detectors ...arbitrage.Detector) *harness {
	logger := discardLogger()
	cfg := executor.DefaultConfig()
	cfg.Delay = 0
	cfg.Leg1FailureRate, cfg.Leg2FailureRate, cfg.PartialFillRate = 0, 0, 0
	rng := rand.New(rand.NewPCG(3, 4))

	h := &harness{
		source: &fakeSource{},
		eng:    engine.New(detectors, engine.NewTracker(time.Minute), logger),
		risk:   service.NewRiskManager(service.DefaultRiskConfig(), logger),
		exec:   executor.New(cfg, slippage.New(slippage.DefaultConfig(), rng), rng, logger),
	}
	h.orch = NewOrchestrator(
		Config{Interval: time.Second, Paper: paper},
		h.source,
		h.eng,
		service.NewOpportunityService(nil, nil, nil, logger),
		h.risk,
		h.exec,
		service.NewExecutionService(nil, nil, nil, logger),
		locks,
		n,
		logger,
	)
	return h
}

func TestOrchestrator_PaperCycle(t *testing.T) {
	h := newHarness(true, nil, nil, &fixedDetector{name: "spread", opps: []domain.Opportunity{underpriced()}})
	ctx := context.Background()

	require.NoError(t, h.orch.RunCycle(ctx))

	history := h.exec.History()
	require.Len(t, history, 1)
	assert.Equal(t, "multi_outcome_spread:m1", history[0].OpportunityKey)
	assert.NotEmpty(t, history[0].OpportunityID)

	tr, ok := h.eng.Tracker().Get("multi_outcome_spread:m1")
	require.True(t, ok)
	assert.True(t, tr.Executed)
	assert.Equal(t, history[0].OpportunityID, tr.Opportunity.ID)
	assert.Equal(t, 1, h.risk.State().DailyTrades)

	// The same opportunity is not traded again.
	require.NoError(t, h.orch.RunCycle(ctx))
	assert.Len(t, h.exec.History(), 1)
}

func TestOrchestrator_ScanModeDoesNotTrade(t *testing.T) {
	h := newHarness(false, nil, nil, &fixedDetector{name: "spread", opps: []domain.Opportunity{underpriced()}})

	require.NoError(t, h.orch.RunCycle(context.Background()))

	assert.Empty(t, h.exec.History())
	assert.Equal(t, 1, h.eng.Tracker().Len())
}

func TestOrchestrator_RiskRejectionSkipsExecution(t *testing.T) {
	h := newHarness(true, nil, nil, &fixedDetector{name: "spread", opps: []domain.Opportunity{underpriced()}})
	h.risk.EmergencyStop(context.Background(), "test")

	require.NoError(t, h.orch.RunCycle(context.Background()))
	assert.Empty(t, h.exec.History())
}

func TestOrchestrator_NoNewTradesAfterCancel(t *testing.T) {
	h := newHarness(true, nil, nil, &fixedDetector{name: "spread", opps: []domain.Opportunity{underpriced()}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.orch.opps = service.NewOpportunityService(nil, nil, cancelOnNotify{cancel: cancel}, discardLogger())

	err := h.orch.RunCycle(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.exec.History())
	assert.Zero(t, h.risk.State().DailyTrades)
	assert.Equal(t, 1, h.eng.Tracker().Len())
}

func TestOrchestrator_SkipsWhenLockHeld(t *testing.T) {
	h := newHarness(true, heldLocks{}, nil, &fixedDetector{name: "spread"})

	require.NoError(t, h.orch.RunCycle(context.Background()))
	assert.Zero(t, h.source.fetches.Load())
}

func TestOrchestrator_AlertsOnDetectorFailure(t *testing.T) {
	n := &recordingNotifier{}
	h := newHarness(false, nil, n,
		&fixedDetector{name: "broken", err: errors.New("bad input")},
		&fixedDetector{name: "spread", opps: []domain.Opportunity{underpriced()}},
	)

	require.NoError(t, h.orch.RunCycle(context.Background()))

	assert.Equal(t, []string{notify.EventDetectorFailed}, n.events)
	assert.Equal(t, 1, h.eng.Tracker().Len())
}

func TestOrchestrator_RunStopsOnCancel(t *testing.T) {
	h := newHarness(false, nil, nil, &fixedDetector{name: "spread"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.orch.Run(ctx) }()

	require.Eventually(t, func() bool { return h.source.fetches.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOrchestrator_TriggerRunsExtraCycle(t *testing.T) {
	h := newHarness(false, nil, nil, &fixedDetector{name: "spread"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = h.orch.Run(ctx) }()
	require.Eventually(t, func() bool { return h.source.fetches.Load() >= 1 }, time.Second, 5*time.Millisecond)

	assert.True(t, h.orch.Trigger())
	require.Eventually(t, func() bool { return h.source.fetches.Load() >= 2 }, 500*time.Millisecond, 5*time.Millisecond)
}

func TestOrchestrator_TriggerCoalesces(t *testing.T) {
	h := newHarness(false, nil, nil, &fixedDetector{name: "spread"})

	assert.True(t, h.orch.Trigger())
	assert.False(t, h.orch.Trigger())
}

func TestOrchestrator_LastCycleAdvances(t *testing.T) {
	h := newHarness(false, nil, nil, &fixedDetector{name: "spread"})
	assert.True(t, h.orch.LastCycle().IsZero())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.orch.Run(ctx) }()

	require.Eventually(t, func() bool { return !h.orch.LastCycle().IsZero() }, time.Second, 5*time.Millisecond)
	assert.WithinDuration(t, time.Now(), h.orch.LastCycle(), time.Second)
}
