package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpportunity_KeyIsOrderIndependent(t *testing.T) {
	ab := Opportunity{
		Type:        OppCrossMarket,
		Primary:     MarketRef{ID: "a"},
		CrossMarket: &CrossMarketDetail{Secondary: MarketRef{ID: "b"}},
	}
	ba := Opportunity{
		Type:        OppCrossMarket,
		Primary:     MarketRef{ID: "b"},
		CrossMarket: &CrossMarketDetail{Secondary: MarketRef{ID: "a"}},
	}
	assert.Equal(t, "cross_market:a:b", ab.Key())
	assert.Equal(t, ab.Key(), ba.Key())

	single := Opportunity{Type: OppMultiOutcome, Primary: MarketRef{ID: "m1"}, MultiOutcome: &MultiOutcomeDetail{}}
	assert.Equal(t, "multi_outcome_spread:m1", single.Key())

	group := Opportunity{Type: OppNegRisk, Primary: MarketRef{ID: "c1"}, NegRisk: &NegRiskDetail{GroupID: "ev"}}
	assert.Equal(t, "negrisk:ev", group.Key())
}

func TestOpportunity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opp     Opportunity
		wantErr bool
	}{
		{"multi outcome", Opportunity{Type: OppMultiOutcome, MultiOutcome: &MultiOutcomeDetail{}}, false},
		{"no payload", Opportunity{Type: OppMultiOutcome}, true},
		{"two payloads", Opportunity{Type: OppCrossMarket, CrossMarket: &CrossMarketDetail{}, Related: &RelatedMarketDetail{}}, true},
		{"mismatched payload", Opportunity{Type: OppSemantic, Related: &RelatedMarketDetail{}}, true},
		{"empty negrisk", Opportunity{Type: OppNegRisk, NegRisk: &NegRiskDetail{}}, true},
		{"unknown type", Opportunity{Type: "bogus", MultiOutcome: &MultiOutcomeDetail{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opp.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpportunity_MinLiquidity(t *testing.T) {
	o := Opportunity{
		Type:    OppNegRisk,
		Primary: MarketRef{ID: "a", Liquidity: 9_000},
		NegRisk: &NegRiskDetail{GroupID: "ev", Conditions: []MarketRef{
			{ID: "a", Liquidity: 9_000}, {ID: "b", Liquidity: 4_000}, {ID: "c", Liquidity: 12_000},
		}},
	}
	assert.InDelta(t, 4_000, o.MinLiquidity(), 1e-9)
	assert.Len(t, o.Markets(), 3)
}

func TestOpportunity_Legs(t *testing.T) {
	over := Opportunity{
		Type:         OppMultiOutcome,
		Primary:      MarketRef{ID: "m1", Price: 0.52},
		Direction:    DirectionOverpriced,
		MultiOutcome: &MultiOutcomeDetail{YesPrice: 0.52, NoPrice: 0.52},
	}
	legs := over.Legs()
	require.Len(t, legs, 2)
	assert.Equal(t, SideSell, legs[0].Side)
	assert.Equal(t, OutcomeNo, legs[1].Outcome)

	long := Opportunity{
		Type:      OppNegRisk,
		Direction: DirectionLongRebalancing,
		NegRisk: &NegRiskDetail{GroupID: "ev", Conditions: []MarketRef{
			{ID: "a", Price: 0.3}, {ID: "b", Price: 0.3}, {ID: "c", Price: 0.3},
		}},
	}
	legs = long.Legs()
	require.Len(t, legs, 3)
	for _, l := range legs {
		assert.Equal(t, OutcomeYes, l.Outcome)
		assert.Equal(t, SideBuy, l.Side)
		assert.InDelta(t, 0.3, l.Price, 1e-9)
	}

	exclusive := Opportunity{
		Type:      OppSemantic,
		Primary:   MarketRef{ID: "a", Price: 0.6},
		Direction: DirectionSellBoth,
		Semantic:  &SemanticDetail{Secondary: MarketRef{ID: "b", Price: 0.5}},
	}
	legs = exclusive.Legs()
	require.Len(t, legs, 2)
	assert.Equal(t, SideSell, legs[0].Side)
	assert.Equal(t, SideSell, legs[1].Side)
}

func TestTrackedOpportunity_PushSpread(t *testing.T) {
	var tr TrackedOpportunity
	for i := 0; i < SpreadHistorySize+3; i++ {
		tr.PushSpread(float64(i))
	}
	require.Len(t, tr.SpreadHistory, SpreadHistorySize)
	assert.InDelta(t, 3, tr.SpreadHistory[0], 1e-9)
	assert.InDelta(t, float64(SpreadHistorySize+2), tr.SpreadHistory[SpreadHistorySize-1], 1e-9)
}

func TestExecutionResult_Return(t *testing.T) {
	r := ExecutionResult{Status: ExecComplete, Size: 200, RealizedProfit: 5}
	assert.True(t, r.Success())
	assert.InDelta(t, 0.025, r.Return(), 1e-9)

	assert.InDelta(t, 0, ExecutionResult{}.Return(), 1e-9)
	assert.False(t, ExecutionResult{Status: ExecFailed, Size: 10, RealizedProfit: 1}.Success())
}

func TestInference_Actionable(t *testing.T) {
	assert.False(t, NoDependency("x").Actionable())
	assert.False(t, Inference{Type: DepSubset}.Actionable())
	assert.True(t, Inference{Type: DepSubset, Relation: RelationLTE}.Actionable())
	assert.False(t, Inference{Type: "bogus", Relation: RelationLTE}.Actionable())
}
