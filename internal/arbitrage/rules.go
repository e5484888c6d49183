package arbitrage

import (
	"regexp"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Rule is a known implication between two question shapes: a market
// matching Upper must price at least as high as the paired market matching
// Lower. Threshold rules instead match both questions with Target and order
// them by the extracted number.
type Rule struct {
	Name  string
	Upper *regexp.Regexp
	Lower *regexp.Regexp

	Target *regexp.Regexp
	// Downside marks targets like "below $X", where the higher threshold is
	// the more likely outcome.
	Downside bool
}

const targetNumber = `\$?([\d,]+(?:\.\d+)?\s?(?:k|m|b|bn|million|billion|thousand)?)\b`

// DefaultRules is the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "primary_implies_nomination",
			Upper: regexp.MustCompile(`(?i)\bprimary\b`),
			Lower: regexp.MustCompile(`(?i)\b(nomination|nominee)\b`),
		},
		{
			Name:  "nomination_implies_presidency",
			Upper: regexp.MustCompile(`(?i)\b(nomination|nominee)\b`),
			Lower: regexp.MustCompile(`(?i)\b(presidency|president|presidential election|white house)\b`),
		},
		{
			Name:  "playoffs_implies_championship",
			Upper: regexp.MustCompile(`(?i)\bplayoffs?\b`),
			Lower: regexp.MustCompile(`(?i)\b(championship|finals|super bowl|world series|stanley cup|title)\b`),
		},
		{
			Name:  "division_implies_conference",
			Upper: regexp.MustCompile(`(?i)\bdivision\b`),
			Lower: regexp.MustCompile(`(?i)\bconference\b`),
		},
		{
			Name:   "price_target_up",
			Target: regexp.MustCompile(`(?i)\b(?:above|over|reach|hit|exceed|surpass|at least)\s+` + targetNumber),
		},
		{
			Name:     "price_target_down",
			Target:   regexp.MustCompile(`(?i)\b(?:below|under|dip to|fall to|drop to)\s+` + targetNumber),
			Downside: true,
		},
	}
}

// Apply reports whether the rule covers questions a and b and, if so,
// whether a is the upper (more likely) side.
func (r Rule) Apply(a, b string) (aUpper bool, ok bool) {
	if r.Target != nil {
		return r.applyTarget(a, b)
	}
	switch {
	case r.only(a, true) && r.only(b, false):
		return true, true
	case r.only(b, true) && r.only(a, false):
		return false, true
	}
	return false, false
}

// only reports whether q matches exactly one side of the rule.
func (r Rule) only(q string, upper bool) bool {
	u, l := r.Upper.MatchString(q), r.Lower.MatchString(q)
	if upper {
		return u && !l
	}
	return l && !u
}

func (r Rule) applyTarget(a, b string) (bool, bool) {
	ta, okA := r.target(a)
	tb, okB := r.target(b)
	if !okA || !okB || ta == tb {
		return false, false
	}
	// Upside: a lower bar is easier to clear. Downside: a higher floor is
	// easier to fall under.
	if r.Downside {
		return ta > tb, true
	}
	return ta < tb, true
}

func (r Rule) target(q string) (float64, bool) {
	m := r.Target.FindStringSubmatch(q)
	if m == nil {
		return 0, false
	}
	return ParseNumber(m[1])
}

// relation is how a rule reads once the pair is ordered by ID.
func relationFor(primaryUpper bool) domain.Relation {
	if primaryUpper {
		return domain.RelationGTE
	}
	return domain.RelationLTE
}
