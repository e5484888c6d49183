package executor

import (
	"math"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// tradingDaysPerYear annualizes the per-trade Sharpe ratio.
const tradingDaysPerYear = 252

// TypeStats aggregates executions of one opportunity type.
type TypeStats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
	TotalProfit float64 `json:"total_profit"`
}

// Stats is a performance snapshot derived from the full trade history.
type Stats struct {
	StartingBankroll float64                              `json:"starting_bankroll"`
	Bankroll         float64                              `json:"bankroll"`
	PeakBankroll     float64                              `json:"peak_bankroll"`
	MaxDrawdown      float64                              `json:"max_drawdown"`
	TotalProfit      float64                              `json:"total_profit"`
	ReturnPct        float64                              `json:"return_pct"`
	Trades           int                                  `json:"trades"`
	Wins             int                                  `json:"wins"`
	Failed           int                                  `json:"failed"`
	WinRate          float64                              `json:"win_rate"`
	Sharpe           float64                              `json:"sharpe"`
	ByType           map[domain.OpportunityType]TypeStats `json:"by_type"`
}

// summarize fills the history-derived fields of s.
func summarize(s *Stats, history []domain.ExecutionResult) {
	s.ByType = make(map[domain.OpportunityType]TypeStats)
	returns := make([]float64, 0, len(history))
	for _, r := range history {
		s.Trades++
		s.TotalProfit += r.RealizedProfit
		if r.Status == domain.ExecFailed {
			s.Failed++
		}
		ts := s.ByType[r.OpportunityType]
		ts.Trades++
		ts.TotalProfit += r.RealizedProfit
		if r.Success() {
			s.Wins++
			ts.Wins++
		}
		ts.WinRate = float64(ts.Wins) / float64(ts.Trades)
		s.ByType[r.OpportunityType] = ts
		returns = append(returns, r.Return())
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.StartingBankroll > 0 {
		s.ReturnPct = (s.Bankroll - s.StartingBankroll) / s.StartingBankroll * 100
	}
	s.Sharpe = Sharpe(returns)
}

// Sharpe is the annualized ratio of mean to sample standard deviation of
// per-trade returns. It is zero for fewer than two trades or no variance.
func Sharpe(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(n)
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}
