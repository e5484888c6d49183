package domain

import "time"

// MarketSnapshot is the per-cycle view of one binary prediction market. It is
// produced by a feed and never mutated by the detection core.
type MarketSnapshot struct {
	ID        string
	Question  string
	Category  string
	Slug      string
	YesPrice  float64
	NoPrice   float64
	Liquidity float64
	Volume    float64
	CreatedAt time.Time
	CloseTime *time.Time

	// EventID groups mutually exclusive outcome markets of one event. NegRisk
	// is set when the venue flags the event as a neg-risk (N-way) set.
	EventID string
	NegRisk bool
}

// HasPrices reports whether both outcome prices lie strictly inside (0,1).
func (m MarketSnapshot) HasPrices() bool {
	return m.YesPrice > 0 && m.YesPrice < 1 && m.NoPrice > 0 && m.NoPrice < 1
}

// TimeToClose returns the remaining time until close, or false when the
// market has no close time.
func (m MarketSnapshot) TimeToClose(now time.Time) (time.Duration, bool) {
	if m.CloseTime == nil {
		return 0, false
	}
	return m.CloseTime.Sub(now), true
}

// Ref builds the MarketRef carried on opportunities.
func (m MarketSnapshot) Ref() MarketRef {
	return MarketRef{
		ID:        m.ID,
		Question:  m.Question,
		Category:  m.Category,
		Price:     m.YesPrice,
		Liquidity: m.Liquidity,
	}
}
