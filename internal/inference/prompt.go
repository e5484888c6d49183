package inference

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const systemPrompt = `You analyse pairs of prediction-market questions for logical dependencies between their YES outcomes.

Classify the relationship of market A to market B as one of:
- subset: A resolving YES implies B resolves YES
- superset: B resolving YES implies A resolves YES
- mutual_exclusion: A and B cannot both resolve YES
- logical_bound: one probability bounds the other for another stated reason
- nested_target: numeric thresholds where one target contains the other
- temporal: same event with nested deadlines
- none: no usable dependency

Reply with a single JSON object and nothing else:
{"relationship": "<type>", "confidence": <0..1>, "rationale": "<one sentence>",
 "constraint": "<e.g. P(A) <= P(B)>", "expected_relation": ">=" | "<=" | "=" | "exclusive",
 "direction": "<optional trade hint>"}

expected_relation reads as "P(A) <relation> P(B)". Omit it only when relationship is none.`

// userPrompt renders the pair. A is always the market with the lower ID.
func userPrompt(a, b domain.MarketSnapshot) string {
	var sb strings.Builder
	writeMarket(&sb, "A", a)
	sb.WriteString("\n")
	writeMarket(&sb, "B", b)
	return sb.String()
}

func writeMarket(sb *strings.Builder, label string, m domain.MarketSnapshot) {
	fmt.Fprintf(sb, "Market %s (id %s): %s\n", label, m.ID, m.Question)
	if m.Category != "" {
		fmt.Fprintf(sb, "Category: %s\n", m.Category)
	}
	if m.CloseTime != nil {
		fmt.Fprintf(sb, "Closes: %s\n", m.CloseTime.Format("2006-01-02"))
	}
}
