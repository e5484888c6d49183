package arbitrage

import "github.com/alanyoungcy/polyarb/internal/domain"

// DefaultMinViolation is the smallest constraint breach worth reporting.
const DefaultMinViolation = 0.015

// Violation measures how far YES prices pa and pb break "a <rel> b" and
// which side to trade. A non-positive amount means the constraint holds.
func Violation(rel domain.Relation, pa, pb float64) (float64, string) {
	switch rel {
	case domain.RelationGTE:
		// a implies nothing less likely than b: a must not be cheaper.
		return round9(pb - pa), domain.DirectionBuyPrimary
	case domain.RelationLTE:
		return round9(pa - pb), domain.DirectionBuySecondary
	case domain.RelationEQ:
		if pa < pb {
			return round9(pb - pa), domain.DirectionBuyPrimary
		}
		return round9(pa - pb), domain.DirectionBuySecondary
	case domain.RelationExclusive:
		return round9(pa + pb - 1), domain.DirectionSellBoth
	}
	return 0, ""
}

// violationBonus rewards larger breaches.
func violationBonus(v float64) float64 {
	switch {
	case v >= 0.05:
		return 0.15
	case v >= 0.03:
		return 0.10
	}
	return 0
}
