// Package executor simulates trading detected opportunities against a paper
// bankroll: fractional-Kelly sizing, slippage, and the failure modes of
// non-atomic multi-leg execution.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/slippage"
)

// ErrClosed is returned by Execute after Close.
var ErrClosed = errors.New("executor: closed")

// Config holds the simulation parameters.
type Config struct {
	StartingBankroll float64
	MaxPositionSize  float64
	Delay            time.Duration
	Leg1FailureRate  float64
	Leg2FailureRate  float64
	PartialFillRate  float64
	// Leg1PenaltyPct is the fee kept when the first leg fails.
	Leg1PenaltyPct float64
	// UnwindLossPct is lost unwinding a stuck first leg.
	UnwindLossPct float64
	FeePct        float64
	DedupTTL      time.Duration
}

// DefaultConfig returns the default simulation parameters.
func DefaultConfig() Config {
	return Config{
		StartingBankroll: 1_000,
		MaxPositionSize:  100,
		Delay:            100 * time.Millisecond,
		Leg1FailureRate:  0.05,
		Leg2FailureRate:  0.05,
		PartialFillRate:  0.15,
		Leg1PenaltyPct:   0.005,
		UnwindLossPct:    0.02,
		FeePct:           0.01,
		DedupTTL:         5 * time.Minute,
	}
}

// Executor owns the paper bankroll and trade history. Executions are
// serialized: one trade is applied completely before the next starts, and
// Close waits for an in-flight trade.
type Executor struct {
	mu     sync.Mutex
	cfg    Config
	slip   *slippage.Model
	rng    *rand.Rand
	dedup  *Dedup
	now    func() time.Time
	closed bool
	logger *slog.Logger

	bankroll    float64
	peak        float64
	maxDrawdown float64
	history     []domain.ExecutionResult
}

// New creates an Executor. A nil rng is replaced by a randomly seeded source.
func New(cfg Config, slip *slippage.Model, rng *rand.Rand, logger *slog.Logger) *Executor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Executor{
		cfg:      cfg,
		slip:     slip,
		rng:      rng,
		dedup:    NewDedup(cfg.DedupTTL),
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "executor")),
		bankroll: cfg.StartingBankroll,
		peak:     cfg.StartingBankroll,
	}
}

// Size returns the Kelly-sized dollar amount for opp at the current
// bankroll, or zero when the bankroll is too small.
func (e *Executor) Size(opp domain.Opportunity) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PositionSize(KellyFraction(opp.Confidence, opp.ProfitPct), e.bankroll, e.cfg.MaxPositionSize)
}

// Recent reports whether opp's key was executed within the dedup window.
func (e *Executor) Recent(opp domain.Opportunity) bool {
	return e.dedup.Seen(opp.Key())
}

// Execute simulates trading size dollars of opp. Modeled failures are
// reported on the result; errors mean nothing was simulated. The trade runs
// to completion even if ctx is cancelled during the execution delay.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity, size float64) (domain.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.ExecutionResult{}, ErrClosed
	}
	if size <= 0 || size > e.bankroll {
		return domain.ExecutionResult{}, fmt.Errorf("executor: size %.2f with bankroll %.2f: %w",
			size, e.bankroll, domain.ErrInsufficientBankroll)
	}
	e.dedup.Cleanup()
	if e.dedup.IsDuplicate(opp.Key()) {
		return domain.ExecutionResult{}, domain.ErrDuplicateExecution
	}

	res := domain.ExecutionResult{
		ID:              uuid.NewString(),
		OpportunityID:   opp.ID,
		OpportunityKey:  opp.Key(),
		OpportunityType: opp.Type,
		Size:            size,
		KellyFraction:   KellyFraction(opp.Confidence, opp.ProfitPct),
		ExpectedProfit:  size * opp.ProfitPct / 100,
		StartedAt:       e.now(),
	}

	plans := opp.Legs()
	if len(plans) == 0 {
		res.Status = domain.ExecFailed
		res.FailureReason = domain.FailureUnresolvable
		res.CompletedAt = e.now()
		res.BankrollAfter = e.bankroll
		e.finishLocked(ctx, res)
		return res, nil
	}

	// Capital at risk leaves the bankroll before the fill is known.
	e.bankroll -= size
	wait(context.WithoutCancel(ctx), e.cfg.Delay)

	e.simulateLocked(&res, plans)

	e.bankroll += size + res.RealizedProfit
	res.CompletedAt = e.now()
	res.BankrollAfter = e.bankroll
	e.finishLocked(ctx, res)
	return res, nil
}

// simulateLocked samples the failure modes and fills res.Legs and the
// profit fields.
func (e *Executor) simulateLocked(res *domain.ExecutionResult, plans []domain.LegPlan) {
	legSize := res.Size / float64(len(plans))
	res.Legs = make([]domain.ExecutionLeg, len(plans))
	for i, p := range plans {
		res.Legs[i] = domain.ExecutionLeg{
			MarketID:      p.Market.ID,
			Outcome:       p.Outcome,
			Side:          p.Side,
			RequestedSize: legSize,
			ExpectedPrice: p.Price,
			Status:        domain.LegFailed,
		}
	}

	if e.rng.Float64() < e.cfg.Leg1FailureRate {
		res.Status = domain.ExecFailed
		res.FailureReason = domain.FailureLeg1
		res.Fees = res.Size * e.cfg.Leg1PenaltyPct
		res.RealizedProfit = -res.Fees
		return
	}
	if len(plans) > 1 && e.rng.Float64() < e.cfg.Leg2FailureRate {
		e.fillLocked(&res.Legs[0], plans[0], legSize, 1)
		res.Status = domain.ExecFailed
		res.FailureReason = domain.FailureLeg2
		res.RealizedProfit = -res.Size * e.cfg.UnwindLossPct
		return
	}

	ratio := 1.0
	if e.rng.Float64() < e.cfg.PartialFillRate {
		ratio = 0.5 + 0.5*e.rng.Float64()
	}
	for i, p := range plans {
		e.fillLocked(&res.Legs[i], p, legSize, ratio)
	}

	for _, leg := range res.Legs {
		res.SlippageCost += leg.FilledSize * leg.SlippageBps / 10_000
	}
	res.FillRatio = ratio
	res.Fees = res.Size * e.cfg.FeePct
	res.RealizedProfit = res.ExpectedProfit*ratio - res.SlippageCost - res.Fees
	res.Status = domain.ExecComplete
	if res.RealizedProfit <= 0 && res.ExpectedProfit > 0 {
		res.FailureReason = domain.FailureSlippage
	}
}

func (e *Executor) fillLocked(leg *domain.ExecutionLeg, p domain.LegPlan, legSize, ratio float64) {
	est := e.slip.EstimateWithNoise(p.Price, legSize, p.Market.Liquidity, p.Side)
	leg.FilledSize = legSize * ratio
	leg.ExecutedPrice = est.ExecutionPrice
	leg.SlippageBps = est.Bps
	leg.Status = domain.LegFilled
	if ratio < 1 {
		leg.Status = domain.LegPartial
	}
}

func (e *Executor) finishLocked(ctx context.Context, res domain.ExecutionResult) {
	if e.bankroll > e.peak {
		e.peak = e.bankroll
	}
	if e.peak > 0 {
		if dd := (e.peak - e.bankroll) / e.peak; dd > e.maxDrawdown {
			e.maxDrawdown = dd
		}
	}
	e.history = append(e.history, res)

	e.logger.InfoContext(ctx, "paper trade executed",
		slog.String("id", res.ID),
		slog.String("key", res.OpportunityKey),
		slog.String("status", string(res.Status)),
		slog.String("failure", res.FailureReason),
		slog.Float64("size", res.Size),
		slog.Float64("expected", res.ExpectedProfit),
		slog.Float64("realized", res.RealizedProfit),
		slog.Float64("bankroll", e.bankroll),
	)
}

// Bankroll returns the current paper balance.
func (e *Executor) Bankroll() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bankroll
}

// History returns a copy of every execution so far, oldest first.
func (e *Executor) History() []domain.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ExecutionResult, len(e.history))
	copy(out, e.history)
	return out
}

// Stats derives performance statistics from the full history.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		StartingBankroll: e.cfg.StartingBankroll,
		Bankroll:         e.bankroll,
		PeakBankroll:     e.peak,
		MaxDrawdown:      e.maxDrawdown,
	}
	summarize(&s, e.history)
	return s
}

// Close waits for an in-flight execution and rejects later ones.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
