package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

type rawInference struct {
	Relationship     string   `json:"relationship"`
	Confidence       *float64 `json:"confidence"`
	Rationale        string   `json:"rationale"`
	Constraint       string   `json:"constraint"`
	ExpectedRelation string   `json:"expected_relation"`
	Direction        string   `json:"direction"`
}

var relationAliases = map[string]domain.Relation{
	">=":        domain.RelationGTE,
	"≥":         domain.RelationGTE,
	"<=":        domain.RelationLTE,
	"≤":         domain.RelationLTE,
	"=":         domain.RelationEQ,
	"==":        domain.RelationEQ,
	"exclusive": domain.RelationExclusive,
}

// Parse extracts and validates the JSON object in a model reply. Any
// deviation from the schema is an error wrapping domain.ErrInvalidResponse.
func Parse(reply string) (domain.Inference, error) {
	obj, ok := extractObject(reply)
	if !ok {
		return domain.Inference{}, fmt.Errorf("inference: no JSON object in reply: %w", domain.ErrInvalidResponse)
	}

	var raw rawInference
	dec := json.NewDecoder(strings.NewReader(obj))
	if err := dec.Decode(&raw); err != nil {
		return domain.Inference{}, fmt.Errorf("inference: decode reply: %v: %w", err, domain.ErrInvalidResponse)
	}

	typ := domain.DependencyType(strings.ToLower(strings.TrimSpace(raw.Relationship)))
	if !typ.Valid() {
		return domain.Inference{}, fmt.Errorf("inference: unknown relationship %q: %w", raw.Relationship, domain.ErrInvalidResponse)
	}
	if raw.Confidence == nil || *raw.Confidence < 0 || *raw.Confidence > 1 {
		return domain.Inference{}, fmt.Errorf("inference: confidence missing or outside [0,1]: %w", domain.ErrInvalidResponse)
	}

	inf := domain.Inference{
		Type:       typ,
		Confidence: *raw.Confidence,
		Rationale:  strings.TrimSpace(raw.Rationale),
		Constraint: strings.TrimSpace(raw.Constraint),
		Direction:  strings.TrimSpace(raw.Direction),
	}
	if typ == domain.DepNone {
		return inf, nil
	}

	rel, ok := relationAliases[strings.ToLower(strings.TrimSpace(raw.ExpectedRelation))]
	if !ok {
		return domain.Inference{}, fmt.Errorf("inference: relationship %s without a valid expected_relation %q: %w",
			typ, raw.ExpectedRelation, domain.ErrInvalidResponse)
	}
	inf.Relation = rel
	return inf, nil
}

// extractObject returns the first balanced {...} in s, skipping braces
// inside JSON strings. Code fences and surrounding prose are ignored.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// orient rewrites an inference computed for (A, B) so it reads for (B, A).
func orient(inf domain.Inference, flip bool) domain.Inference {
	if !flip {
		return inf
	}
	switch inf.Relation {
	case domain.RelationGTE:
		inf.Relation = domain.RelationLTE
	case domain.RelationLTE:
		inf.Relation = domain.RelationGTE
	}
	switch inf.Type {
	case domain.DepSubset:
		inf.Type = domain.DepSuperset
	case domain.DepSuperset:
		inf.Type = domain.DepSubset
	}
	return inf
}
