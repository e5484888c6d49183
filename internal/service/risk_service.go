package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/metrics"
)

// RiskConfig holds the admission limits. Dollar amounts are notional.
type RiskConfig struct {
	MaxPositionSize  float64
	MaxTotalExposure float64
	MaxDailyLoss     float64
	MinLiquidity     float64
	Cooldown         time.Duration
	// MinNetProfitPct is the margin that must survive the rough slippage
	// estimate.
	MinNetProfitPct float64
}

// DefaultRiskConfig mirrors config.Defaults().Risk.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxPositionSize:  100,
		MaxTotalExposure: 1_000,
		MaxDailyLoss:     100,
		MinLiquidity:     5_000,
		Cooldown:         30 * time.Second,
		MinNetProfitPct:  0.1,
	}
}

// RiskManager is the admission gate for paper trades and the holder of
// post-trade exposure state. All methods are safe for concurrent use.
type RiskManager struct {
	mu     sync.Mutex
	cfg    RiskConfig
	state  domain.RiskState
	now    func() time.Time
	logger *slog.Logger
}

// NewRiskManager creates a RiskManager with empty state.
func NewRiskManager(cfg RiskConfig, logger *slog.Logger) *RiskManager {
	r := &RiskManager{
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "risk_manager")),
	}
	r.state.Positions = make(map[string]domain.Position)
	r.state.DayStart = r.now().Truncate(24 * time.Hour)
	return r
}

// Check runs all six admission checks for trading size dollars of opp.
// Every check is evaluated so the decision lists each failure.
func (r *RiskManager) Check(ctx context.Context, opp domain.Opportunity, size float64) domain.RiskDecision {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.maybeResetLocked(now)

	checks := []domain.RiskCheck{
		r.checkPositionLocked(opp, size),
		r.checkExposureLocked(size),
		r.checkDailyLossLocked(),
		r.checkLiquidity(opp),
		r.checkCooldownLocked(now),
		r.checkProfitMargin(opp, size),
	}
	dec := domain.RiskDecision{Approved: true, Checks: checks}
	for _, c := range checks {
		if !c.Passed {
			dec.Approved = false
			metrics.RiskRejections.WithLabelValues(c.Name).Inc()
		}
	}
	if !dec.Approved {
		r.logger.InfoContext(ctx, "trade rejected",
			slog.String("opportunity", opp.Key()),
			slog.Float64("size", size),
			slog.Any("failed", dec.Failed()),
		)
	}
	return dec
}

func pass(name string) domain.RiskCheck { return domain.RiskCheck{Name: name, Passed: true} }

func fail(name, format string, args ...any) domain.RiskCheck {
	return domain.RiskCheck{Name: name, Reason: fmt.Sprintf(format, args...)}
}

// checkPositionLocked projects the primary market's notional after the
// first leg.
func (r *RiskManager) checkPositionLocked(opp domain.Opportunity, size float64) domain.RiskCheck {
	signed := size
	if legs := opp.Legs(); len(legs) > 0 && legs[0].Side == domain.SideSell {
		signed = -size
	}
	pos := r.state.Positions[opp.Primary.ID]
	projected := math.Abs(pos.Size*pos.AvgPrice + signed)
	if projected > r.cfg.MaxPositionSize {
		return fail(domain.CheckPositionLimit, "position %.2f would exceed %.2f", projected, r.cfg.MaxPositionSize)
	}
	return pass(domain.CheckPositionLimit)
}

func (r *RiskManager) checkExposureLocked(size float64) domain.RiskCheck {
	projected := r.state.TotalExposure + size
	if projected > r.cfg.MaxTotalExposure {
		return fail(domain.CheckExposureLimit, "exposure %.2f would exceed %.2f", projected, r.cfg.MaxTotalExposure)
	}
	return pass(domain.CheckExposureLimit)
}

// checkDailyLossLocked treats reaching the floor as a breach, so a zeroed
// limit after EmergencyStop fails even with no losses.
func (r *RiskManager) checkDailyLossLocked() domain.RiskCheck {
	if r.state.DailyPnL <= -r.cfg.MaxDailyLoss {
		return fail(domain.CheckDailyLoss, "daily pnl %.2f at or below -%.2f", r.state.DailyPnL, r.cfg.MaxDailyLoss)
	}
	return pass(domain.CheckDailyLoss)
}

func (r *RiskManager) checkLiquidity(opp domain.Opportunity) domain.RiskCheck {
	if liq := opp.MinLiquidity(); liq < r.cfg.MinLiquidity {
		return fail(domain.CheckLiquidity, "min leg liquidity %.0f below %.0f", liq, r.cfg.MinLiquidity)
	}
	return pass(domain.CheckLiquidity)
}

func (r *RiskManager) checkCooldownLocked(now time.Time) domain.RiskCheck {
	if r.state.LastTradeAt.IsZero() {
		return pass(domain.CheckCooldown)
	}
	if elapsed := now.Sub(r.state.LastTradeAt); elapsed < r.cfg.Cooldown {
		return fail(domain.CheckCooldown, "%s since last trade, cooldown %s", elapsed, r.cfg.Cooldown)
	}
	return pass(domain.CheckCooldown)
}

// checkProfitMargin subtracts half the linear impact, in percent, from the
// quoted profit.
func (r *RiskManager) checkProfitMargin(opp domain.Opportunity, size float64) domain.RiskCheck {
	liq := opp.MinLiquidity()
	if liq <= 0 {
		return fail(domain.CheckProfitMargin, "no liquidity to estimate slippage")
	}
	rough := RoughSlippagePct(size, liq)
	if net := opp.ProfitPct - rough; net <= r.cfg.MinNetProfitPct {
		return fail(domain.CheckProfitMargin, "profit %.2f%% minus slippage %.2f%% leaves %.2f%%", opp.ProfitPct, rough, net)
	}
	return pass(domain.CheckProfitMargin)
}

// RoughSlippagePct is the admission-time slippage estimate in percent.
func RoughSlippagePct(size, liquidity float64) float64 {
	return 0.5 * (size / liquidity) * 100
}

// Record applies a finished execution: nets positions per filled leg,
// recomputes exposure, and accumulates the daily counters.
func (r *RiskManager) Record(ctx context.Context, res domain.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.maybeResetLocked(now)

	for _, leg := range res.Legs {
		if leg.FilledSize <= 0 || leg.ExecutedPrice <= 0 {
			continue
		}
		shares := leg.FilledSize / leg.ExecutedPrice
		if leg.Side == domain.SideSell {
			shares = -shares
		}
		r.applyFillLocked(leg.MarketID, shares, leg.ExecutedPrice)
	}
	r.recomputeExposureLocked()

	r.state.DailyPnL += res.RealizedProfit
	r.state.DailyVolume += res.Size
	r.state.DailyTrades++
	r.state.LastTradeAt = now

	r.logger.DebugContext(ctx, "execution recorded",
		slog.String("execution", res.ID),
		slog.Float64("exposure", r.state.TotalExposure),
		slog.Float64("daily_pnl", r.state.DailyPnL),
	)
}

// applyFillLocked nets shares into the market's position. Adding in the
// same direction averages the entry price; crossing zero restarts it.
func (r *RiskManager) applyFillLocked(marketID string, shares, price float64) {
	pos, ok := r.state.Positions[marketID]
	if !ok {
		pos = domain.Position{MarketID: marketID}
	}
	next := pos.Size + shares
	switch {
	case math.Abs(next) < 1e-9:
		delete(r.state.Positions, marketID)
		return
	case pos.Size == 0 || sameSign(pos.Size, shares):
		pos.AvgPrice = (math.Abs(pos.Size)*pos.AvgPrice + math.Abs(shares)*price) / math.Abs(next)
	case !sameSign(pos.Size, next):
		pos.AvgPrice = price
	}
	pos.Size = next
	r.state.Positions[marketID] = pos
}

func sameSign(a, b float64) bool { return (a > 0) == (b > 0) }

func (r *RiskManager) recomputeExposureLocked() {
	var total float64
	for _, p := range r.state.Positions {
		total += math.Abs(p.Size * p.AvgPrice)
	}
	r.state.TotalExposure = total
}

// maybeResetLocked clears the daily counters once per UTC day.
func (r *RiskManager) maybeResetLocked(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	if !day.After(r.state.DayStart) {
		return
	}
	r.state.DayStart = day
	r.state.DailyPnL = 0
	r.state.DailyVolume = 0
	r.state.DailyTrades = 0
	r.logger.Info("daily risk counters reset", slog.Time("day", day))
}

// ClosePosition drops a market's position, e.g. after it resolves.
func (r *RiskManager) ClosePosition(marketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.state.Positions[marketID]; !ok {
		return
	}
	delete(r.state.Positions, marketID)
	r.recomputeExposureLocked()
}

// EmergencyStop zeroes the exposure and daily-loss limits so every further
// admission fails. Positions and counters are untouched.
func (r *RiskManager) EmergencyStop(ctx context.Context, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.MaxTotalExposure = 0
	r.cfg.MaxDailyLoss = 0
	r.state.EmergencyStop = true
	r.logger.WarnContext(ctx, "emergency stop engaged", slog.String("reason", reason))
}

// State returns a copy of the current risk state.
func (r *RiskManager) State() domain.RiskState {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Positions = make(map[string]domain.Position, len(r.state.Positions))
	for k, v := range r.state.Positions {
		s.Positions[k] = v
	}
	return s
}

// Limits returns the limits currently in force.
func (r *RiskManager) Limits() RiskConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}
