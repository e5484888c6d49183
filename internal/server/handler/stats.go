package handler

import (
	"net/http"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/executor"
	"github.com/alanyoungcy/polyarb/internal/service"
)

// PerformanceSource reports paper-trading performance.
type PerformanceSource interface {
	Stats() executor.Stats
}

// RiskView reads risk state and the limits in force.
type RiskView interface {
	State() domain.RiskState
	Limits() service.RiskConfig
}

// StatsHandler serves executor performance and risk state.
type StatsHandler struct {
	perf PerformanceSource
	risk RiskView
}

// NewStatsHandler creates a StatsHandler. Either source may be nil when the
// process runs in scan mode.
func NewStatsHandler(perf PerformanceSource, risk RiskView) *StatsHandler {
	return &StatsHandler{perf: perf, risk: risk}
}

type limitsResponse struct {
	MaxPositionSize  float64 `json:"max_position_size"`
	MaxTotalExposure float64 `json:"max_total_exposure"`
	MaxDailyLoss     float64 `json:"max_daily_loss"`
	MinLiquidity     float64 `json:"min_liquidity"`
	CooldownSeconds  float64 `json:"cooldown_seconds"`
	MinNetProfitPct  float64 `json:"min_net_profit_pct"`
}

type statsResponse struct {
	Performance *executor.Stats   `json:"performance,omitempty"`
	Risk        *domain.RiskState `json:"risk,omitempty"`
	Limits      *limitsResponse   `json:"limits,omitempty"`
}

// GetStats returns the performance snapshot and risk state.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	var resp statsResponse
	if h.perf != nil {
		s := h.perf.Stats()
		resp.Performance = &s
	}
	if h.risk != nil {
		state := h.risk.State()
		l := h.risk.Limits()
		resp.Risk = &state
		resp.Limits = &limitsResponse{
			MaxPositionSize:  l.MaxPositionSize,
			MaxTotalExposure: l.MaxTotalExposure,
			MaxDailyLoss:     l.MaxDailyLoss,
			MinLiquidity:     l.MinLiquidity,
			CooldownSeconds:  l.Cooldown.Seconds(),
			MinNetProfitPct:  l.MinNetProfitPct,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
