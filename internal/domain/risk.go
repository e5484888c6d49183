package domain

import "time"

// Position is the net simulated position in one market. Size is signed:
// positive is long, negative is short.
type Position struct {
	MarketID      string  `json:"market_id"`
	Size          float64 `json:"size"`
	AvgPrice      float64 `json:"avg_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// RiskState is a point-in-time copy of the RiskManager's mutable state.
type RiskState struct {
	Positions     map[string]Position `json:"positions"`
	TotalExposure float64             `json:"total_exposure"`
	DailyPnL      float64             `json:"daily_pnl"`
	DailyVolume   float64             `json:"daily_volume"`
	DailyTrades   int                 `json:"daily_trades"`
	LastTradeAt   time.Time           `json:"last_trade_at"`
	DayStart      time.Time           `json:"day_start"`
	EmergencyStop bool                `json:"emergency_stop"`
}

// Risk check names, in evaluation order.
const (
	CheckPositionLimit = "position_limit"
	CheckExposureLimit = "exposure_limit"
	CheckDailyLoss     = "daily_loss"
	CheckLiquidity     = "liquidity"
	CheckCooldown      = "cooldown"
	CheckProfitMargin  = "profit_after_slippage"
)

// RiskCheck is the result of one admission check.
type RiskCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason,omitempty"`
}

// RiskDecision aggregates all admission checks; Approved is their AND.
type RiskDecision struct {
	Approved bool        `json:"approved"`
	Checks   []RiskCheck `json:"checks"`
}

// Failed returns the names of the checks that did not pass.
func (d RiskDecision) Failed() []string {
	var out []string
	for _, c := range d.Checks {
		if !c.Passed {
			out = append(out, c.Name)
		}
	}
	return out
}

// SlippageEstimate is the SlippageModel's answer for one hypothetical order.
type SlippageEstimate struct {
	Bps            float64 `json:"bps"`
	ExecutionPrice float64 `json:"execution_price"`
	Confidence     float64 `json:"confidence"`
	Liquidity      float64 `json:"liquidity"`
}
