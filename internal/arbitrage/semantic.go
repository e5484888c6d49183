package arbitrage

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Classifier judges the logical dependency between two markets. A is always
// the market with the lower ID.
type Classifier interface {
	Classify(ctx context.Context, a, b domain.MarketSnapshot) (domain.Inference, error)
}

// SemanticConfig configures the Semantic detector.
type SemanticConfig struct {
	Thresholds
	MaxPairs               int
	MinViolation           float64
	MinInferenceConfidence float64
}

// Semantic asks a text-inference classifier about candidate pairs and
// checks the returned price constraint.
type Semantic struct {
	cfg        SemanticConfig
	classifier Classifier
	clock      clock
	logger     *slog.Logger
}

// NewSemantic creates the detector.
func NewSemantic(cfg SemanticConfig, classifier Classifier, logger *slog.Logger) *Semantic {
	if cfg.MaxPairs <= 0 {
		cfg.MaxPairs = 50
	}
	if cfg.MinViolation <= 0 {
		cfg.MinViolation = DefaultMinViolation
	}
	return &Semantic{
		cfg:        cfg,
		classifier: classifier,
		logger:     logger.With(slog.String("detector", "semantic_dependency")),
	}
}

// Name returns the detector identifier.
func (d *Semantic) Name() string { return string(domain.OppSemantic) }

type scoredPair struct {
	a, b  indexedMarket
	score float64
}

// candidates keeps pairs sharing a name and a keyword, best first, capped
// at MaxPairs.
func (d *Semantic) candidates(items []indexedMarket) []scoredPair {
	var out []scoredPair
	for _, p := range candidatePairs(items) {
		a, b := items[p[0]], items[p[1]]
		names := shared(a.ent.Names, b.ent.Names)
		keywords := shared(a.ent.Keywords, b.ent.Keywords)
		if len(names) == 0 || len(keywords) == 0 {
			continue
		}
		out = append(out, scoredPair{
			a:     a,
			b:     b,
			score: float64(len(names)+len(keywords)) + Jaccard(a.ent.Words, b.ent.Words),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	if len(out) > d.cfg.MaxPairs {
		out = out[:d.cfg.MaxPairs]
	}
	return out
}

// Detect classifies candidate pairs. Classifier failures skip the pair;
// only cancellation aborts the scan.
func (d *Semantic) Detect(ctx context.Context, markets []domain.MarketSnapshot) ([]domain.Opportunity, error) {
	now := d.clock.now()
	items := prepare(markets, d.cfg.MinLiquidity)
	pairs := d.candidates(items)

	var (
		out      []domain.Opportunity
		failures int
	)
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		inf, err := d.classifier.Classify(ctx, p.a.m, p.b.m)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			d.logger.WarnContext(ctx, "classification failed",
				slog.String("a", p.a.m.ID),
				slog.String("b", p.b.m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !inf.Actionable() || inf.Confidence < d.cfg.MinInferenceConfidence {
			continue
		}
		opp, ok := d.evaluate(p.a.m, p.b.m, inf)
		if !ok {
			continue
		}
		opp.DetectedAt = now
		out = append(out, opp)
	}
	if len(pairs) > 0 {
		d.logger.DebugContext(ctx, "semantic scan done",
			slog.Int("pairs", len(pairs)),
			slog.Int("failures", failures),
			slog.Int("found", len(out)),
		)
	}
	sortByProfit(out)
	return out, nil
}

func (d *Semantic) evaluate(a, b domain.MarketSnapshot, inf domain.Inference) (domain.Opportunity, bool) {
	v, dir := Violation(inf.Relation, a.YesPrice, b.YesPrice)
	if v < d.cfg.MinViolation {
		return domain.Opportunity{}, false
	}
	profit := v*100 - d.cfg.FeePct

	c := 0.8*inf.Confidence + 0.1
	if a.Liquidity >= 20_000 && b.Liquidity >= 20_000 {
		c += 0.1
	}
	c = clamp01(c)
	if !d.cfg.accept(profit, c) {
		return domain.Opportunity{}, false
	}
	return domain.Opportunity{
		Type:       domain.OppSemantic,
		Primary:    a.Ref(),
		Spread:     v,
		ProfitPct:  profit,
		Confidence: c,
		Direction:  dir,
		Status:     domain.OppStatusActive,
		ExpiresAt:  earliestClose(a, b),
		Semantic: &domain.SemanticDetail{
			Secondary: b.Ref(),
			Inference: inf,
		},
	}, true
}
