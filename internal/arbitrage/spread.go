package arbitrage

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// MultiOutcomeSpread flags binary markets whose YES and NO prices do not sum
// to 1.
type MultiOutcomeSpread struct {
	th     Thresholds
	clock  clock
	logger *slog.Logger
}

// NewMultiOutcomeSpread creates the detector.
func NewMultiOutcomeSpread(th Thresholds, logger *slog.Logger) *MultiOutcomeSpread {
	return &MultiOutcomeSpread{
		th:     th,
		logger: logger.With(slog.String("detector", "multi_outcome_spread")),
	}
}

// Name returns the detector identifier.
func (d *MultiOutcomeSpread) Name() string { return string(domain.OppMultiOutcome) }

// Detect scans every market independently.
func (d *MultiOutcomeSpread) Detect(ctx context.Context, markets []domain.MarketSnapshot) ([]domain.Opportunity, error) {
	now := d.clock.now()
	var out []domain.Opportunity
	for _, m := range markets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !m.HasPrices() || m.Liquidity < d.th.MinLiquidity {
			continue
		}
		sum := round9(m.YesPrice + m.NoPrice)
		spread := round9(math.Abs(1 - sum))
		profit := spread*100 - d.th.FeePct
		conf := spreadConfidence(m, spread, now)
		if !d.th.accept(profit, conf) {
			continue
		}
		dir := domain.DirectionUnderpriced
		if sum > 1 {
			dir = domain.DirectionOverpriced
		}
		out = append(out, domain.Opportunity{
			Type:       domain.OppMultiOutcome,
			Primary:    m.Ref(),
			Spread:     spread,
			ProfitPct:  profit,
			Confidence: conf,
			Direction:  dir,
			Status:     domain.OppStatusActive,
			DetectedAt: now,
			ExpiresAt:  m.CloseTime,
			MultiOutcome: &domain.MultiOutcomeDetail{
				YesPrice: m.YesPrice,
				NoPrice:  m.NoPrice,
				Sum:      sum,
			},
		})
		d.logger.DebugContext(ctx, "spread found",
			slog.String("market_id", m.ID),
			slog.Float64("sum", sum),
			slog.Float64("profit_pct", profit),
		)
	}
	sortByProfit(out)
	return out, nil
}

// spreadConfidence scores how likely a YES+NO mismatch is real rather than
// stale quotes. Wide spreads are penalised, deep and busy markets rewarded.
func spreadConfidence(m domain.MarketSnapshot, spread float64, now time.Time) float64 {
	c := 0.5

	switch {
	case m.Liquidity >= 100_000:
		c += 0.25
	case m.Liquidity >= 50_000:
		c += 0.15
	case m.Liquidity >= 20_000:
		c += 0.10
	}

	switch {
	case spread > 0.05:
		c -= 0.30
	case spread > 0.03:
		c -= 0.15
	case spread > 0.02:
		c -= 0.05
	}

	if m.Volume >= 100_000 {
		c += 0.10
	}

	if ttc, ok := m.TimeToClose(now); ok {
		switch {
		case ttc < 24*time.Hour:
			c -= 0.20
		case ttc < 7*24*time.Hour:
			c -= 0.05
		}
	}
	return clamp01(c)
}
