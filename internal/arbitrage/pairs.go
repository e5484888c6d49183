package arbitrage

import (
	"sort"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// indexedMarket caches per-market text features for pairwise detectors.
type indexedMarket struct {
	m       domain.MarketSnapshot
	ent     Entities
	subject string
}

// prepare extracts entities for every market with a usable YES price and
// enough liquidity, ordered by ID so pairs come out with the lower ID first.
func prepare(markets []domain.MarketSnapshot, minLiquidity float64) []indexedMarket {
	out := make([]indexedMarket, 0, len(markets))
	for _, m := range markets {
		if m.YesPrice <= 0 || m.YesPrice >= 1 || m.Liquidity < minLiquidity {
			continue
		}
		out = append(out, indexedMarket{
			m:       m,
			ent:     ExtractEntities(m.Question),
			subject: ExtractSubject(m.Question),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].m.ID < out[j].m.ID })
	return out
}

// candidatePairs returns index pairs (i<j) of markets that share at least
// one name entity. Markets in the same event are left to the NegRisk
// detector.
func candidatePairs(items []indexedMarket) [][2]int {
	byName := make(map[string][]int)
	for i, it := range items {
		for _, n := range it.ent.Names {
			byName[n] = append(byName[n], i)
		}
	}

	seen := make(map[[2]int]bool)
	var pairs [][2]int
	for _, idxs := range byName {
		for x := 0; x < len(idxs); x++ {
			for y := x + 1; y < len(idxs); y++ {
				i, j := idxs[x], idxs[y]
				if i > j {
					i, j = j, i
				}
				p := [2]int{i, j}
				if seen[p] {
					continue
				}
				seen[p] = true
				a, b := items[i].m, items[j].m
				if a.ID == b.ID || (a.EventID != "" && a.EventID == b.EventID) {
					continue
				}
				pairs = append(pairs, p)
			}
		}
	}
	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x][0] != pairs[y][0] {
			return pairs[x][0] < pairs[y][0]
		}
		return pairs[x][1] < pairs[y][1]
	})
	return pairs
}

func sameCategory(a, b domain.MarketSnapshot) bool {
	return a.Category != "" && a.Category == b.Category
}

// combinedLiquidityBonus is shared by the pairwise detectors.
func combinedLiquidityBonus(a, b domain.MarketSnapshot) float64 {
	switch total := a.Liquidity + b.Liquidity; {
	case total >= 100_000:
		return 0.20
	case total >= 50_000:
		return 0.15
	case total >= 20_000:
		return 0.10
	}
	return 0
}
