package arbitrage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func newCrossMarket() *CrossMarket {
	d := NewCrossMarket(DefaultCrossMarketConfig(DefaultThresholds()), discardLogger())
	d.clock = fixedClock()
	return d
}

func TestCrossMarket_ExactMatch(t *testing.T) {
	a := market("a", "Will Bitcoin reach $100k by December 31?", 0.40, 30_000)
	b := market("b", "Bitcoin to reach $100k by December 31", 0.50, 30_000)
	a.Category, b.Category = "crypto", "crypto"

	opps, err := newCrossMarket().Detect(context.Background(), []domain.MarketSnapshot{b, a})
	require.NoError(t, err)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, "a", o.Primary.ID)
	require.NotNil(t, o.CrossMarket)
	assert.Equal(t, "b", o.CrossMarket.Secondary.ID)
	assert.Equal(t, domain.MatchExact, o.CrossMarket.MatchType)
	assert.InDelta(t, 1.0, o.CrossMarket.Similarity, 1e-9)
	assert.Equal(t, domain.DirectionBuyPrimary, o.Direction)
	assert.InDelta(t, 0.10, o.Spread, 1e-9)
	assert.InDelta(t, 24.0, o.ProfitPct, 1e-6)
	// 0.5 similarity, +0.15 liquidity, +0.15 shared, +0.1 category.
	assert.InDelta(t, 0.9, o.Confidence, 1e-9)
	assert.Equal(t, "cross_market:a:b", o.Key())
}

func TestCrossMarket_InverseMatch(t *testing.T) {
	a := market("a", "Will Bitcoin close above $100k on December 31?", 0.60, 30_000)
	b := market("b", "Will Bitcoin close below $100k on December 31?", 0.45, 30_000)

	opps, err := newCrossMarket().Detect(context.Background(), []domain.MarketSnapshot{a, b})
	require.NoError(t, err)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, domain.MatchInverse, o.CrossMarket.MatchType)
	assert.Equal(t, domain.DirectionBuySecondary, o.Direction)
	assert.InDelta(t, 0.05/0.55*100-1, o.ProfitPct, 1e-6)

	legs := o.Legs()
	require.Len(t, legs, 2)
	assert.Equal(t, "b", legs[0].Market.ID)
	assert.Equal(t, domain.OutcomeNo, legs[0].Outcome)
	assert.Equal(t, domain.SideBuy, legs[0].Side)
}

func TestCrossMarket_DifferentSubjectsRejected(t *testing.T) {
	a := market("a", "Will the Lakers win the 2025 NBA Finals?", 0.30, 100_000)
	b := market("b", "Will the Celtics win the 2025 NBA Finals?", 0.45, 100_000)

	opps, err := newCrossMarket().Detect(context.Background(), []domain.MarketSnapshot{a, b})
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestCrossMarket_DifferentSubjectsWithoutWillRejected(t *testing.T) {
	for _, q := range [][2]string{
		{"Lakers win the 2025 NBA Finals?", "Celtics win the 2025 NBA Finals?"},
		{"The Lakers win the 2025 NBA Finals?", "The Celtics win the 2025 NBA Finals?"},
		{"Lakers win the 2025 NBA Finals?", "Will the Celtics win the 2025 NBA Finals?"},
	} {
		t.Run(q[0]+"|"+q[1], func(t *testing.T) {
			a := market("x", q[0], 0.30, 60_000)
			b := market("y", q[1], 0.40, 60_000)

			opps, err := newCrossMarket().Detect(context.Background(), []domain.MarketSnapshot{a, b})
			require.NoError(t, err)
			assert.Empty(t, opps)
		})
	}
}

func TestCrossMarket_DifferentTargetsRejected(t *testing.T) {
	a := market("a", "Will Bitcoin reach $100k by December 31?", 0.30, 100_000)
	b := market("b", "Will Bitcoin reach $120k by December 31?", 0.45, 100_000)

	opps, err := newCrossMarket().Detect(context.Background(), []domain.MarketSnapshot{a, b})
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestCrossMarket_DifferentYearsRejected(t *testing.T) {
	a := market("a", "Will Trump win the 2024 presidential election?", 0.30, 100_000)
	b := market("b", "Will Trump win the 2028 presidential election?", 0.45, 100_000)

	require.GreaterOrEqual(t, CompareEntities(ExtractEntities(a.Question), ExtractEntities(b.Question)).Score, 0.5)
	opps, err := newCrossMarket().Detect(context.Background(), []domain.MarketSnapshot{a, b})
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestCrossMarket_SameEventSkipped(t *testing.T) {
	a := market("a", "Will Bitcoin reach $100k by December 31?", 0.40, 30_000)
	b := market("b", "Bitcoin to reach $100k by December 31", 0.50, 30_000)
	a.EventID, b.EventID = "ev", "ev"

	opps, err := newCrossMarket().Detect(context.Background(), []domain.MarketSnapshot{a, b})
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestWeightedSimilarity(t *testing.T) {
	assert.InDelta(t, 0.48, WeightedSimilarity(0.8, 0, 0, 0, 0.6), 1e-9)
	// Agreeing dates push strong name and word overlap over the default.
	assert.GreaterOrEqual(t, WeightedSimilarity(0.8, 1, 0, 0, 0.6), 0.5)
	assert.InDelta(t, 1.0, WeightedSimilarity(1, 1, 1, 1, 1), 1e-9)
}

func TestDetectMatchType(t *testing.T) {
	tests := []struct {
		a, b string
		want domain.MatchType
	}{
		{"Will X win the race?", "Will X win the race?", domain.MatchExact},
		{"Will X win the race?", "Will X lose the race?", domain.MatchInverse},
		{"Will X win the race?", "Will X not win the race?", domain.MatchInverse},
		{"Will X not lose the race?", "Will X win the race?", domain.MatchExact},
		{"Will the bill pass?", "Will the bill fail?", domain.MatchInverse},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMatchType(tt.a, tt.b))
		})
	}
}
