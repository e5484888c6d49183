// Package arbitrage holds the mispricing detectors. Each detector is
// independent: it reads one cycle's market snapshots and returns the
// opportunities it finds, already filtered by its thresholds and sorted by
// profit percentage, highest first.
package arbitrage

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Detector finds one family of mispricings.
type Detector interface {
	Name() string
	Detect(ctx context.Context, markets []domain.MarketSnapshot) ([]domain.Opportunity, error)
}

// Thresholds are the floors every detector applies before emitting.
type Thresholds struct {
	MinLiquidity  float64
	MinProfitPct  float64
	MinConfidence float64
	// FeePct is the assumed round-trip fee in percentage points.
	FeePct float64
}

// DefaultThresholds mirrors config.Defaults().Detection.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinLiquidity:  1_000,
		MinProfitPct:  0.5,
		MinConfidence: 0.5,
		FeePct:        1.0,
	}
}

// accept reports whether an opportunity clears the profit and confidence
// floors.
func (t Thresholds) accept(profitPct, confidence float64) bool {
	return profitPct >= t.MinProfitPct && confidence >= t.MinConfidence
}

// sortByProfit orders opportunities by ProfitPct descending. Ties keep a
// stable order by key so output is deterministic.
func sortByProfit(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].ProfitPct != opps[j].ProfitPct {
			return opps[i].ProfitPct > opps[j].ProfitPct
		}
		return opps[i].Key() < opps[j].Key()
	})
}

// SortByProfit is the exported ordering used by the engine after merging.
func SortByProfit(opps []domain.Opportunity) { sortByProfit(opps) }

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// round9 removes float noise from price arithmetic so tier boundaries such
// as "deviation > 10%" are not tripped by 0.10000000000000009.
func round9(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
