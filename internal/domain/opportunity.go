package domain

import (
	"fmt"
	"time"
)

// OpportunityType is the discriminant of the Opportunity sum type.
type OpportunityType string

const (
	OppMultiOutcome  OpportunityType = "multi_outcome_spread"
	OppNegRisk       OpportunityType = "negrisk"
	OppCrossMarket   OpportunityType = "cross_market"
	OppRelatedMarket OpportunityType = "related_market"
	OppSemantic      OpportunityType = "semantic_dependency"
)

// OpportunityTypes lists every variant in a stable order.
var OpportunityTypes = []OpportunityType{
	OppMultiOutcome, OppNegRisk, OppCrossMarket, OppRelatedMarket, OppSemantic,
}

// OpportunityStatus is the lifecycle state of a persisted opportunity.
type OpportunityStatus string

const (
	OppStatusActive   OpportunityStatus = "active"
	OppStatusExecuted OpportunityStatus = "executed"
	OppStatusExpired  OpportunityStatus = "expired"
	OppStatusInvalid  OpportunityStatus = "invalid"
)

// Directions reported by detectors.
const (
	DirectionOverpriced       = "overpriced"
	DirectionUnderpriced      = "underpriced"
	DirectionLongRebalancing  = "long_rebalancing"
	DirectionShortRebalancing = "short_rebalancing"
	DirectionBuyPrimary       = "buy_primary"
	DirectionBuySecondary     = "buy_secondary"
	DirectionSellBoth         = "sell_both"
)

// MarketRef is the slice of a MarketSnapshot an opportunity carries around.
type MarketRef struct {
	ID        string  `json:"id"`
	Question  string  `json:"question"`
	Category  string  `json:"category,omitempty"`
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
}

// MatchType says how two similar markets relate for CrossMarket.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchInverse MatchType = "inverse"
)

// Relation is the expected ordering between two markets' YES prices.
type Relation string

const (
	RelationGTE       Relation = ">="
	RelationLTE       Relation = "<="
	RelationEQ        Relation = "="
	RelationExclusive Relation = "exclusive"
)

// Valid reports whether r is one of the known relations.
func (r Relation) Valid() bool {
	switch r {
	case RelationGTE, RelationLTE, RelationEQ, RelationExclusive:
		return true
	}
	return false
}

// MultiOutcomeDetail is the payload of an OppMultiOutcome opportunity.
type MultiOutcomeDetail struct {
	YesPrice float64 `json:"yes_price"`
	NoPrice  float64 `json:"no_price"`
	Sum      float64 `json:"sum"`
}

// NegRiskDetail is the payload of an OppNegRisk opportunity.
type NegRiskDetail struct {
	GroupID    string      `json:"group_id"`
	Conditions []MarketRef `json:"conditions"`
	SumYes     float64     `json:"sum_yes"`
}

// CrossMarketDetail is the payload of an OppCrossMarket opportunity.
type CrossMarketDetail struct {
	Secondary      MarketRef `json:"secondary"`
	MatchType      MatchType `json:"match_type"`
	Similarity     float64   `json:"similarity"`
	SharedEntities []string  `json:"shared_entities,omitempty"`
}

// RelatedMarketDetail is the payload of an OppRelatedMarket opportunity.
// Relation is expressed as "primary <Relation> secondary".
type RelatedMarketDetail struct {
	Secondary MarketRef `json:"secondary"`
	Rule      string    `json:"rule"`
	Relation  Relation  `json:"relation"`
}

// SemanticDetail is the payload of an OppSemantic opportunity.
type SemanticDetail struct {
	Secondary MarketRef `json:"secondary"`
	Inference Inference `json:"inference"`
}

// Opportunity is a detected mispricing. Type selects which one of the detail
// pointers is populated; the others stay nil.
type Opportunity struct {
	ID         string            `json:"id,omitempty"`
	Type       OpportunityType   `json:"type"`
	Primary    MarketRef         `json:"primary"`
	Spread     float64           `json:"spread"`
	ProfitPct  float64           `json:"profit_pct"`
	Confidence float64           `json:"confidence"`
	Direction  string            `json:"direction"`
	Status     OpportunityStatus `json:"status"`
	DetectedAt time.Time         `json:"detected_at"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`

	MultiOutcome *MultiOutcomeDetail  `json:"multi_outcome,omitempty"`
	NegRisk      *NegRiskDetail       `json:"negrisk,omitempty"`
	CrossMarket  *CrossMarketDetail   `json:"cross_market,omitempty"`
	Related      *RelatedMarketDetail `json:"related,omitempty"`
	Semantic     *SemanticDetail      `json:"semantic,omitempty"`
}

// Validate checks that exactly the payload matching Type is present.
func (o Opportunity) Validate() error {
	set := 0
	for _, p := range []bool{o.MultiOutcome != nil, o.NegRisk != nil, o.CrossMarket != nil, o.Related != nil, o.Semantic != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("opportunity %s: expected one payload, got %d", o.Type, set)
	}
	var ok bool
	switch o.Type {
	case OppMultiOutcome:
		ok = o.MultiOutcome != nil
	case OppNegRisk:
		ok = o.NegRisk != nil && len(o.NegRisk.Conditions) > 0
	case OppCrossMarket:
		ok = o.CrossMarket != nil
	case OppRelatedMarket:
		ok = o.Related != nil
	case OppSemantic:
		ok = o.Semantic != nil
	default:
		return fmt.Errorf("opportunity: unknown type %q", o.Type)
	}
	if !ok {
		return fmt.Errorf("opportunity %s: payload does not match type", o.Type)
	}
	return nil
}

// Secondary returns the second market of a pairwise opportunity.
func (o Opportunity) Secondary() (MarketRef, bool) {
	switch o.Type {
	case OppCrossMarket:
		if o.CrossMarket != nil {
			return o.CrossMarket.Secondary, true
		}
	case OppRelatedMarket:
		if o.Related != nil {
			return o.Related.Secondary, true
		}
	case OppSemantic:
		if o.Semantic != nil {
			return o.Semantic.Secondary, true
		}
	}
	return MarketRef{}, false
}

// Key is the canonical dedup key. Pairwise keys sort the two market IDs so
// that (a,b) and (b,a) collapse; NegRisk keys on the event group.
func (o Opportunity) Key() string {
	switch o.Type {
	case OppNegRisk:
		if o.NegRisk != nil && o.NegRisk.GroupID != "" {
			return string(o.Type) + ":" + o.NegRisk.GroupID
		}
	case OppCrossMarket, OppRelatedMarket, OppSemantic:
		if sec, ok := o.Secondary(); ok {
			a, b := o.Primary.ID, sec.ID
			if b < a {
				a, b = b, a
			}
			return string(o.Type) + ":" + a + ":" + b
		}
	}
	return string(o.Type) + ":" + o.Primary.ID
}

// Markets returns every market the opportunity trades, primary first.
func (o Opportunity) Markets() []MarketRef {
	if o.Type == OppNegRisk && o.NegRisk != nil {
		out := make([]MarketRef, len(o.NegRisk.Conditions))
		copy(out, o.NegRisk.Conditions)
		return out
	}
	out := []MarketRef{o.Primary}
	if sec, ok := o.Secondary(); ok {
		out = append(out, sec)
	}
	return out
}

// MinLiquidity is the smallest liquidity across all traded markets.
func (o Opportunity) MinLiquidity() float64 {
	ms := o.Markets()
	if len(ms) == 0 {
		return 0
	}
	lowest := ms[0].Liquidity
	for _, m := range ms[1:] {
		if m.Liquidity < lowest {
			lowest = m.Liquidity
		}
	}
	return lowest
}

// LegPlan is one order the executor should simulate for an opportunity.
type LegPlan struct {
	Market  MarketRef
	Outcome Outcome
	Side    Side
	Price   float64
}

// Legs expands the opportunity into the orders that capture it.
func (o Opportunity) Legs() []LegPlan {
	switch o.Type {
	case OppMultiOutcome:
		d := o.MultiOutcome
		if d == nil {
			return nil
		}
		side := SideBuy
		if o.Direction == DirectionOverpriced {
			side = SideSell
		}
		return []LegPlan{
			{Market: o.Primary, Outcome: OutcomeYes, Side: side, Price: d.YesPrice},
			{Market: o.Primary, Outcome: OutcomeNo, Side: side, Price: d.NoPrice},
		}
	case OppNegRisk:
		d := o.NegRisk
		if d == nil {
			return nil
		}
		legs := make([]LegPlan, 0, len(d.Conditions))
		for _, c := range d.Conditions {
			if o.Direction == DirectionShortRebalancing {
				legs = append(legs, LegPlan{Market: c, Outcome: OutcomeNo, Side: SideBuy, Price: 1 - c.Price})
			} else {
				legs = append(legs, LegPlan{Market: c, Outcome: OutcomeYes, Side: SideBuy, Price: c.Price})
			}
		}
		return legs
	case OppCrossMarket:
		d := o.CrossMarket
		if d == nil {
			return nil
		}
		secOutcome, secPrice := OutcomeYes, d.Secondary.Price
		if d.MatchType == MatchInverse {
			secOutcome, secPrice = OutcomeNo, 1-d.Secondary.Price
		}
		if o.Direction == DirectionBuySecondary {
			return []LegPlan{
				{Market: d.Secondary, Outcome: secOutcome, Side: SideBuy, Price: secPrice},
				{Market: o.Primary, Outcome: OutcomeYes, Side: SideSell, Price: o.Primary.Price},
			}
		}
		return []LegPlan{
			{Market: o.Primary, Outcome: OutcomeYes, Side: SideBuy, Price: o.Primary.Price},
			{Market: d.Secondary, Outcome: secOutcome, Side: SideSell, Price: secPrice},
		}
	case OppRelatedMarket, OppSemantic:
		sec, ok := o.Secondary()
		if !ok {
			return nil
		}
		switch o.Direction {
		case DirectionSellBoth:
			return []LegPlan{
				{Market: o.Primary, Outcome: OutcomeYes, Side: SideSell, Price: o.Primary.Price},
				{Market: sec, Outcome: OutcomeYes, Side: SideSell, Price: sec.Price},
			}
		case DirectionBuySecondary:
			return []LegPlan{
				{Market: sec, Outcome: OutcomeYes, Side: SideBuy, Price: sec.Price},
				{Market: o.Primary, Outcome: OutcomeYes, Side: SideSell, Price: o.Primary.Price},
			}
		default:
			return []LegPlan{
				{Market: o.Primary, Outcome: OutcomeYes, Side: SideBuy, Price: o.Primary.Price},
				{Market: sec, Outcome: OutcomeYes, Side: SideSell, Price: sec.Price},
			}
		}
	}
	return nil
}
