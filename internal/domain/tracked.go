package domain

import "time"

// SpreadHistorySize bounds TrackedOpportunity.SpreadHistory.
const SpreadHistorySize = 10

// TrackedOpportunity wraps an Opportunity with lifecycle bookkeeping across
// detection cycles.
type TrackedOpportunity struct {
	Opportunity   Opportunity `json:"opportunity"`
	FirstSeen     time.Time   `json:"first_seen"`
	LastSeen      time.Time   `json:"last_seen"`
	SeenCount     int         `json:"seen_count"`
	SpreadHistory []float64   `json:"spread_history"`
	Executed      bool        `json:"executed"`
}

// PushSpread appends a spread sample, dropping the oldest once full.
func (t *TrackedOpportunity) PushSpread(v float64) {
	if len(t.SpreadHistory) >= SpreadHistorySize {
		copy(t.SpreadHistory, t.SpreadHistory[1:])
		t.SpreadHistory[len(t.SpreadHistory)-1] = v
		return
	}
	t.SpreadHistory = append(t.SpreadHistory, v)
}
