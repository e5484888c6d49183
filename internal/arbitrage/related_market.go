package arbitrage

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// RelatedMarketConfig configures the RelatedMarket detector.
type RelatedMarketConfig struct {
	Thresholds
	Rules        []Rule
	MinViolation float64
}

// RelatedMarket checks price consistency between markets linked by a known
// implication, such as "wins the nomination" and "wins the presidency".
type RelatedMarket struct {
	cfg    RelatedMarketConfig
	clock  clock
	logger *slog.Logger
}

// NewRelatedMarket creates the detector. A nil rule table uses
// DefaultRules.
func NewRelatedMarket(cfg RelatedMarketConfig, logger *slog.Logger) *RelatedMarket {
	if cfg.Rules == nil {
		cfg.Rules = DefaultRules()
	}
	if cfg.MinViolation <= 0 {
		cfg.MinViolation = DefaultMinViolation
	}
	return &RelatedMarket{
		cfg:    cfg,
		logger: logger.With(slog.String("detector", "related_market")),
	}
}

// Name returns the detector identifier.
func (d *RelatedMarket) Name() string { return string(domain.OppRelatedMarket) }

// Detect evaluates every rule against every name-sharing pair. The first
// matching rule wins.
func (d *RelatedMarket) Detect(ctx context.Context, markets []domain.MarketSnapshot) ([]domain.Opportunity, error) {
	now := d.clock.now()
	items := prepare(markets, d.cfg.MinLiquidity)

	var out []domain.Opportunity
	for _, p := range candidatePairs(items) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, b := items[p[0]], items[p[1]]
		for _, rule := range d.cfg.Rules {
			aUpper, ok := rule.Apply(a.m.Question, b.m.Question)
			if !ok {
				continue
			}
			if rule.Target != nil && agreeJaccard(a.ent.Dates, b.ent.Dates) < 1 {
				continue
			}
			if opp, ok := d.evaluate(rule, a.m, b.m, aUpper); ok {
				opp.DetectedAt = now
				out = append(out, opp)
				d.logger.DebugContext(ctx, "rule violated",
					slog.String("rule", rule.Name),
					slog.String("primary", a.m.ID),
					slog.String("secondary", b.m.ID),
					slog.Float64("spread", opp.Spread),
				)
			}
			break
		}
	}
	sortByProfit(out)
	return out, nil
}

func (d *RelatedMarket) evaluate(rule Rule, a, b domain.MarketSnapshot, aUpper bool) (domain.Opportunity, bool) {
	rel := relationFor(aUpper)
	v, dir := Violation(rel, a.YesPrice, b.YesPrice)
	if v < d.cfg.MinViolation {
		return domain.Opportunity{}, false
	}
	profit := v*100 - d.cfg.FeePct

	c := 0.4 + combinedLiquidityBonus(a, b) + violationBonus(v)
	if sameCategory(a, b) {
		c += 0.1
	}
	c = clamp01(c)
	if !d.cfg.accept(profit, c) {
		return domain.Opportunity{}, false
	}
	return domain.Opportunity{
		Type:       domain.OppRelatedMarket,
		Primary:    a.Ref(),
		Spread:     v,
		ProfitPct:  profit,
		Confidence: c,
		Direction:  dir,
		Status:     domain.OppStatusActive,
		ExpiresAt:  earliestClose(a, b),
		Related: &domain.RelatedMarketDetail{
			Secondary: b.Ref(),
			Rule:      rule.Name,
			Relation:  rel,
		},
	}, true
}
