package arbitrage

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const (
	minNegRiskConditions = 3
	thinLegLiquidity     = 5_000
)

// NegRiskConfig configures the NegRisk detector.
type NegRiskConfig struct {
	Thresholds
	// RequireFlag restricts grouping to markets the venue marks as neg-risk.
	// Without it every market sharing an event ID is assumed exhaustive.
	RequireFlag bool
}

// NegRisk checks that the YES prices of an N-way exclusive, exhaustive event
// sum to 1.
type NegRisk struct {
	cfg    NegRiskConfig
	clock  clock
	logger *slog.Logger
}

// NewNegRisk creates the detector.
func NewNegRisk(cfg NegRiskConfig, logger *slog.Logger) *NegRisk {
	return &NegRisk{
		cfg:    cfg,
		logger: logger.With(slog.String("detector", "negrisk")),
	}
}

// Name returns the detector identifier.
func (d *NegRisk) Name() string { return string(domain.OppNegRisk) }

// Detect groups markets by event and evaluates each group of three or more.
func (d *NegRisk) Detect(ctx context.Context, markets []domain.MarketSnapshot) ([]domain.Opportunity, error) {
	now := d.clock.now()
	groups := make(map[string][]domain.MarketSnapshot)
	for _, m := range markets {
		if m.EventID == "" || (d.cfg.RequireFlag && !m.NegRisk) {
			continue
		}
		groups[m.EventID] = append(groups[m.EventID], m)
	}

	var out []domain.Opportunity
	for groupID, legs := range groups {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opp, ok := d.evaluate(groupID, legs)
		if !ok {
			continue
		}
		opp.DetectedAt = now
		out = append(out, opp)
		d.logger.DebugContext(ctx, "negrisk deviation",
			slog.String("group_id", groupID),
			slog.Int("conditions", len(legs)),
			slog.Float64("sum_yes", opp.NegRisk.SumYes),
			slog.Float64("profit_pct", opp.ProfitPct),
		)
	}
	sortByProfit(out)
	return out, nil
}

func (d *NegRisk) evaluate(groupID string, legs []domain.MarketSnapshot) (domain.Opportunity, bool) {
	if len(legs) < minNegRiskConditions {
		return domain.Opportunity{}, false
	}
	sort.Slice(legs, func(i, j int) bool { return legs[i].ID < legs[j].ID })

	var sum float64
	minLiq := math.Inf(1)
	conds := make([]domain.MarketRef, 0, len(legs))
	for _, m := range legs {
		// A missing quote leaves the set incomplete; the sum means nothing.
		if m.YesPrice <= 0 || m.YesPrice >= 1 {
			return domain.Opportunity{}, false
		}
		sum += m.YesPrice
		minLiq = math.Min(minLiq, m.Liquidity)
		conds = append(conds, m.Ref())
	}
	if minLiq < d.cfg.MinLiquidity {
		return domain.Opportunity{}, false
	}

	sum = round9(sum)
	dev := round9(math.Abs(1 - sum))
	profit := dev*100 - d.cfg.FeePct
	conf := negRiskConfidence(legs, dev, minLiq)
	if !d.cfg.accept(profit, conf) {
		return domain.Opportunity{}, false
	}

	dir := domain.DirectionLongRebalancing
	if sum > 1 {
		dir = domain.DirectionShortRebalancing
	}
	return domain.Opportunity{
		Type:       domain.OppNegRisk,
		Primary:    conds[0],
		Spread:     dev,
		ProfitPct:  profit,
		Confidence: conf,
		Direction:  dir,
		Status:     domain.OppStatusActive,
		ExpiresAt:  legs[0].CloseTime,
		NegRisk: &domain.NegRiskDetail{
			GroupID:    groupID,
			Conditions: conds,
			SumYes:     sum,
		},
	}, true
}

func negRiskConfidence(legs []domain.MarketSnapshot, dev, minLiq float64) float64 {
	c := 0.5

	switch n := len(legs); {
	case n >= 10:
		c += 0.15
	case n >= 5:
		c += 0.10
	case n >= 3:
		c += 0.05
	}

	switch {
	case minLiq >= 50_000:
		c += 0.20
	case minLiq >= 25_000:
		c += 0.15
	case minLiq >= 10_000:
		c += 0.10
	case minLiq >= 5_000:
		c += 0.05
	}

	switch {
	case dev > 0.10:
		c -= 0.30
	case dev > 0.05:
		c -= 0.15
	case dev > 0.03:
		c -= 0.05
	}

	thin := 0
	for _, m := range legs {
		if m.YesPrice < 0.01 || m.YesPrice > 0.99 {
			c -= 0.20
			break
		}
	}
	for _, m := range legs {
		if m.Liquidity < thinLegLiquidity {
			thin++
		}
	}
	if thin*2 > len(legs) {
		c -= 0.15
	}
	return clamp01(c)
}
