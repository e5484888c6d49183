package notify

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// FormatOpportunity renders an alert for a newly detected opportunity.
func FormatOpportunity(o domain.Opportunity) (title, message string) {
	title = fmt.Sprintf("Arb: %s %.2f%%", o.Type, o.ProfitPct)

	var sb strings.Builder
	for i, m := range o.Markets() {
		if i == 0 {
			fmt.Fprintf(&sb, "Primary: %s @ %.3f\n", m.Question, m.Price)
			continue
		}
		fmt.Fprintf(&sb, "Leg %d: %s @ %.3f\n", i+1, m.Question, m.Price)
	}
	fmt.Fprintf(&sb, "Direction: %s\nSpread: %.4f | Confidence: %.2f", o.Direction, o.Spread, o.Confidence)
	switch {
	case o.Related != nil:
		fmt.Fprintf(&sb, "\nRule: %s", o.Related.Rule)
	case o.Semantic != nil:
		fmt.Fprintf(&sb, "\nRelationship: %s (%s)", o.Semantic.Inference.Type, o.Semantic.Inference.Rationale)
	case o.CrossMarket != nil:
		fmt.Fprintf(&sb, "\nMatch: %s, similarity %.2f", o.CrossMarket.MatchType, o.CrossMarket.Similarity)
	}
	return title, sb.String()
}

// FormatExecution renders an alert for a completed paper trade.
func FormatExecution(r domain.ExecutionResult) (title, message string) {
	outcome := "WIN"
	if !r.Success() {
		outcome = "LOSS"
	}
	if r.Status == domain.ExecFailed {
		outcome = "FAILED"
	}
	title = fmt.Sprintf("Paper trade %s: %s", outcome, r.OpportunityType)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Size: $%.2f (Kelly %.1f%%)\n", r.Size, r.KellyFraction*100)
	fmt.Fprintf(&sb, "Expected: $%.2f | Realized: $%.2f\n", r.ExpectedProfit, r.RealizedProfit)
	if r.FillRatio > 0 && r.FillRatio < 1 {
		fmt.Fprintf(&sb, "Partial fill: %.0f%%\n", r.FillRatio*100)
	}
	if r.FailureReason != "" {
		fmt.Fprintf(&sb, "Reason: %s\n", r.FailureReason)
	}
	fmt.Fprintf(&sb, "Bankroll: $%.2f", r.BankrollAfter)
	return title, sb.String()
}
