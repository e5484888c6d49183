package domain

// DependencyType classifies the logical relationship between two markets as
// judged by the text-inference service.
type DependencyType string

const (
	DepSubset          DependencyType = "subset"
	DepSuperset        DependencyType = "superset"
	DepMutualExclusion DependencyType = "mutual_exclusion"
	DepLogicalBound    DependencyType = "logical_bound"
	DepNestedTarget    DependencyType = "nested_target"
	DepTemporal        DependencyType = "temporal"
	DepNone            DependencyType = "none"
)

// Valid reports whether t is a known dependency type.
func (t DependencyType) Valid() bool {
	switch t {
	case DepSubset, DepSuperset, DepMutualExclusion, DepLogicalBound,
		DepNestedTarget, DepTemporal, DepNone:
		return true
	}
	return false
}

// Inference is a parsed classification for an ordered market pair (A, B).
// Relation reads as "P(A) <Relation> P(B)".
type Inference struct {
	Type       DependencyType `json:"relationship"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale"`
	Constraint string         `json:"constraint,omitempty"`
	Relation   Relation       `json:"relation,omitempty"`
	Direction  string         `json:"direction,omitempty"`
}

// NoDependency is the negative classification.
func NoDependency(reason string) Inference {
	return Inference{Type: DepNone, Rationale: reason}
}

// Actionable reports whether the inference carries a usable price relation.
func (i Inference) Actionable() bool {
	return i.Type != DepNone && i.Type.Valid() && i.Relation.Valid()
}
