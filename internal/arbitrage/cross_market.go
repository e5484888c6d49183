package arbitrage

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// CrossMarketConfig configures the CrossMarket detector.
type CrossMarketConfig struct {
	Thresholds
	SimilarityThreshold float64
	MinNameOverlap      float64
	MinSubjectOverlap   float64
}

// DefaultCrossMarketConfig returns the standard gates.
func DefaultCrossMarketConfig(th Thresholds) CrossMarketConfig {
	return CrossMarketConfig{
		Thresholds:          th,
		SimilarityThreshold: 0.5,
		MinNameOverlap:      0.3,
		MinSubjectOverlap:   0.5,
	}
}

// Similarity is the weighted entity comparison of two questions.
type Similarity struct {
	Name    float64
	Date    float64
	Number  float64
	Keyword float64
	Word    float64
	Score   float64
	Shared  []string
}

// WeightedSimilarity combines per-feature Jaccard scores.
func WeightedSimilarity(name, date, number, keyword, word float64) float64 {
	return 0.45*name + 0.15*date + 0.10*number + 0.10*keyword + 0.20*word
}

// CompareEntities scores two entity sets.
func CompareEntities(a, b Entities) Similarity {
	s := Similarity{
		Name:    FuzzyJaccard(a.Names, b.Names),
		Date:    agreeJaccard(a.Dates, b.Dates),
		Number:  agreeJaccard(a.Numbers, b.Numbers),
		Keyword: Jaccard(a.Keywords, b.Keywords),
		Word:    FuzzyJaccard(a.Words, b.Words),
	}
	s.Score = WeightedSimilarity(s.Name, s.Date, s.Number, s.Keyword, s.Word)
	for _, set := range [][2][]string{
		{a.Names, b.Names}, {a.Dates, b.Dates}, {a.Numbers, b.Numbers}, {a.Keywords, b.Keywords},
	} {
		s.Shared = append(s.Shared, shared(set[0], set[1])...)
	}
	return s
}

// CrossMarket matches questions that describe the same (or the exactly
// opposite) event and compares their prices.
type CrossMarket struct {
	cfg    CrossMarketConfig
	clock  clock
	logger *slog.Logger
}

// NewCrossMarket creates the detector.
func NewCrossMarket(cfg CrossMarketConfig, logger *slog.Logger) *CrossMarket {
	return &CrossMarket{
		cfg:    cfg,
		logger: logger.With(slog.String("detector", "cross_market")),
	}
}

// Name returns the detector identifier.
func (d *CrossMarket) Name() string { return string(domain.OppCrossMarket) }

// Detect compares every candidate pair that shares a name entity.
func (d *CrossMarket) Detect(ctx context.Context, markets []domain.MarketSnapshot) ([]domain.Opportunity, error) {
	now := d.clock.now()
	items := prepare(markets, d.cfg.MinLiquidity)

	var out []domain.Opportunity
	for _, p := range candidatePairs(items) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, b := items[p[0]], items[p[1]]
		sim, ok := d.match(a, b)
		if !ok {
			continue
		}
		opp, ok := d.price(a.m, b.m, sim)
		if !ok {
			continue
		}
		opp.DetectedAt = now
		out = append(out, opp)
	}
	sortByProfit(out)
	return out, nil
}

// match applies the subject, name-overlap, specifics and similarity gates
// in order.
func (d *CrossMarket) match(a, b indexedMarket) (Similarity, bool) {
	if a.subject != "" && b.subject != "" && SubjectOverlap(a.subject, b.subject) < d.cfg.MinSubjectOverlap {
		return Similarity{}, false
	}
	sim := CompareEntities(a.ent, b.ent)
	if sim.Name < d.cfg.MinNameOverlap {
		return Similarity{}, false
	}
	// "$100k" and "$120k" targets, or different deadlines, are different
	// events however similar the wording.
	if conflicting(a.ent.Numbers, b.ent.Numbers) || conflicting(a.ent.Dates, b.ent.Dates) {
		return Similarity{}, false
	}
	if sim.Score < d.cfg.SimilarityThreshold {
		return Similarity{}, false
	}
	return sim, true
}

func (d *CrossMarket) price(a, b domain.MarketSnapshot, sim Similarity) (domain.Opportunity, bool) {
	mt := DetectMatchType(a.Question, b.Question)
	pa, pb := a.YesPrice, b.YesPrice
	if mt == domain.MatchInverse {
		pb = 1 - b.YesPrice
	}
	gap := round9(math.Abs(pa - pb))
	cheaper := math.Min(pa, pb)
	if gap == 0 || cheaper <= 0 {
		return domain.Opportunity{}, false
	}
	profit := gap/cheaper*100 - d.cfg.FeePct

	c := sim.Score * 0.5
	c += combinedLiquidityBonus(a, b)
	if gap > 0.15 && sim.Score >= 0.8 {
		// Near-identical questions priced far apart usually differ in a
		// detail the extractor missed.
		c -= 0.2
	}
	switch n := len(sim.Shared); {
	case n >= 3:
		c += 0.15
	case n >= 2:
		c += 0.10
	}
	if sameCategory(a, b) {
		c += 0.1
	}
	c = clamp01(c)

	if !d.cfg.accept(profit, c) {
		return domain.Opportunity{}, false
	}
	dir := domain.DirectionBuyPrimary
	if pb < pa {
		dir = domain.DirectionBuySecondary
	}
	return domain.Opportunity{
		Type:       domain.OppCrossMarket,
		Primary:    a.Ref(),
		Spread:     gap,
		ProfitPct:  profit,
		Confidence: c,
		Direction:  dir,
		Status:     domain.OppStatusActive,
		ExpiresAt:  earliestClose(a, b),
		CrossMarket: &domain.CrossMarketDetail{
			Secondary:      b.Ref(),
			MatchType:      mt,
			Similarity:     sim.Score,
			SharedEntities: sim.Shared,
		},
	}, true
}

func conflicting(a, b []string) bool {
	return len(a) > 0 && len(b) > 0 && len(shared(a, b)) == 0
}

// negationPairs are antonyms that flip a question's meaning.
var negationPairs = [][2]string{
	{"win", "lose"}, {"wins", "loses"}, {"above", "below"}, {"over", "under"},
	{"pass", "fail"}, {"approve", "reject"}, {"increase", "decrease"},
	{"rise", "fall"}, {"higher", "lower"}, {"more", "fewer"}, {"yes", "no"},
	{"before", "after"}, {"gain", "lose"}, {"up", "down"},
}

// DetectMatchType decides whether YES on b means YES on a (exact) or NO on a
// (inverse). Each antonym hit and each one-sided "not" flips the parity.
func DetectMatchType(a, b string) domain.MatchType {
	ta, tb := rawTokens(a), rawTokens(b)
	flips := 0
	for _, p := range negationPairs {
		x, y := p[0], p[1]
		if (ta[x] && tb[y] && !ta[y] && !tb[x]) || (ta[y] && tb[x] && !ta[x] && !tb[y]) {
			flips++
			break
		}
	}
	if negated(ta) != negated(tb) {
		flips++
	}
	if flips%2 == 1 {
		return domain.MatchInverse
	}
	return domain.MatchExact
}

func negated(tokens map[string]bool) bool {
	return tokens["not"] || tokens["won't"] || tokens["isn't"] || tokens["doesn't"] || tokens["never"]
}

func rawTokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	}) {
		out[f] = true
	}
	return out
}

// earliestClose is when the first of two legs stops trading.
func earliestClose(a, b domain.MarketSnapshot) *time.Time {
	switch {
	case a.CloseTime == nil:
		return b.CloseTime
	case b.CloseTime == nil:
		return a.CloseTime
	case b.CloseTime.Before(*a.CloseTime):
		return b.CloseTime
	}
	return a.CloseTime
}
