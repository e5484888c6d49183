package domain

import "time"

// Side is the direction of a simulated order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Outcome names the binary outcome token a leg trades.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// LegStatus is the fill state of one execution leg.
type LegStatus string

const (
	LegFilled  LegStatus = "filled"
	LegPartial LegStatus = "partial"
	LegFailed  LegStatus = "failed"
)

// ExecutionStatus is the overall outcome of a simulated execution.
type ExecutionStatus string

const (
	ExecComplete ExecutionStatus = "complete"
	ExecFailed   ExecutionStatus = "failed"
)

// Failure reasons recorded on ExecutionResult.FailureReason.
const (
	FailureLeg1         = "leg1_failed"
	FailureLeg2         = "leg2_failed_non_atomic"
	FailureSlippage     = "slippage_exceeded_margin"
	FailureNoCapital    = "insufficient_bankroll"
	FailureUnresolvable = "no_legs"
)

// ExecutionLeg records one simulated order.
type ExecutionLeg struct {
	MarketID      string    `json:"market_id"`
	Outcome       Outcome   `json:"outcome"`
	Side          Side      `json:"side"`
	RequestedSize float64   `json:"requested_size"`
	FilledSize    float64   `json:"filled_size"`
	ExpectedPrice float64   `json:"expected_price"`
	ExecutedPrice float64   `json:"executed_price"`
	SlippageBps   float64   `json:"slippage_bps"`
	Status        LegStatus `json:"status"`
}

// ExecutionResult is the immutable record of one paper trade.
type ExecutionResult struct {
	ID              string          `json:"id,omitempty"`
	OpportunityID   string          `json:"opportunity_id,omitempty"`
	OpportunityKey  string          `json:"opportunity_key"`
	OpportunityType OpportunityType `json:"opportunity_type"`
	Legs            []ExecutionLeg  `json:"legs"`
	Size            float64         `json:"size"`
	KellyFraction   float64         `json:"kelly_fraction"`
	Fees            float64         `json:"fees"`
	Gas             float64         `json:"gas"`
	SlippageCost    float64         `json:"slippage_cost"`
	ExpectedProfit  float64         `json:"expected_profit"`
	RealizedProfit  float64         `json:"realized_profit"`
	FillRatio       float64         `json:"fill_ratio"`
	Status          ExecutionStatus `json:"status"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     time.Time       `json:"completed_at"`
	BankrollAfter   float64         `json:"bankroll_after"`
}

// Success reports whether the trade closed with a positive realized profit.
func (r ExecutionResult) Success() bool {
	return r.Status == ExecComplete && r.RealizedProfit > 0
}

// Return is realized profit per dollar committed.
func (r ExecutionResult) Return() float64 {
	if r.Size <= 0 {
		return 0
	}
	return r.RealizedProfit / r.Size
}

// Resolution is the settled state of a market as reported by the venue.
type Resolution struct {
	MarketID   string    `json:"market_id"`
	Closed     bool      `json:"closed"`
	YesWon     bool      `json:"yes_won"`
	ResolvedAt time.Time `json:"resolved_at"`
}
