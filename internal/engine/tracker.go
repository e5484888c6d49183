package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/domain"
)

const (
	// DefaultTTL is how long an opportunity may go unseen before eviction.
	DefaultTTL = 5 * time.Minute
	// SignificantChangePct is the profit move, in percentage points, that
	// re-reports a tracked opportunity as new.
	SignificantChangePct = 0.5
)

// Observation is the outcome of feeding one cycle into the Tracker.
type Observation struct {
	// Active is every opportunity seen this cycle, carrying persisted IDs.
	Active []domain.Opportunity
	// Fresh is the subset worth reporting: first sighting, confirmation on
	// the second sighting, or a significant profit change.
	Fresh []domain.Opportunity
	// Expired entries were evicted this cycle.
	Expired []domain.TrackedOpportunity
}

// Tracker keeps opportunities across cycles keyed by Opportunity.Key.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*domain.TrackedOpportunity
	ttl     time.Duration
	now     func() time.Time
}

// NewTracker creates a tracker. A non-positive ttl uses DefaultTTL.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		entries: make(map[string]*domain.TrackedOpportunity),
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Observe merges a cycle's deduplicated opportunities into the tracking map
// and evicts entries unseen for longer than the TTL.
func (t *Tracker) Observe(opps []domain.Opportunity) Observation {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var obs Observation
	for _, opp := range opps {
		key := opp.Key()
		tr, ok := t.entries[key]
		if !ok {
			tr = &domain.TrackedOpportunity{
				Opportunity: opp,
				FirstSeen:   now,
				LastSeen:    now,
				SeenCount:   1,
			}
			tr.PushSpread(opp.Spread)
			t.entries[key] = tr
			obs.Active = append(obs.Active, opp)
			obs.Fresh = append(obs.Fresh, opp)
			continue
		}

		fresh := tr.SeenCount == 1 ||
			math.Abs(opp.ProfitPct-tr.Opportunity.ProfitPct) > SignificantChangePct

		if opp.ID == "" {
			opp.ID = tr.Opportunity.ID
		}
		if tr.Executed {
			opp.Status = domain.OppStatusExecuted
		}
		tr.Opportunity = opp
		tr.SeenCount++
		tr.LastSeen = now
		tr.PushSpread(opp.Spread)

		obs.Active = append(obs.Active, opp)
		if fresh {
			obs.Fresh = append(obs.Fresh, opp)
		}
	}

	for key, tr := range t.entries {
		if now.Sub(tr.LastSeen) > t.ttl {
			ex := *tr
			ex.Opportunity.Status = domain.OppStatusExpired
			obs.Expired = append(obs.Expired, ex)
			delete(t.entries, key)
		}
	}
	sort.Slice(obs.Expired, func(i, j int) bool {
		return obs.Expired[i].Opportunity.Key() < obs.Expired[j].Opportunity.Key()
	})
	return obs
}

// SetID records the persisted identifier for a tracked opportunity.
func (t *Tracker) SetID(key, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.entries[key]; ok {
		tr.Opportunity.ID = id
	}
}

// MarkExecuted flags a tracked opportunity as traded.
func (t *Tracker) MarkExecuted(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tr, ok := t.entries[key]; ok {
		tr.Executed = true
		tr.Opportunity.Status = domain.OppStatusExecuted
	}
}

// Get returns a copy of the tracked entry.
func (t *Tracker) Get(key string) (domain.TrackedOpportunity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.entries[key]
	if !ok {
		return domain.TrackedOpportunity{}, false
	}
	return copyTracked(tr), true
}

// Snapshot returns copies of all tracked entries, highest profit first.
func (t *Tracker) Snapshot() []domain.TrackedOpportunity {
	t.mu.Lock()
	out := make([]domain.TrackedOpportunity, 0, len(t.entries))
	for _, tr := range t.entries {
		out = append(out, copyTracked(tr))
	}
	t.mu.Unlock()

	opps := make([]domain.Opportunity, len(out))
	byKey := make(map[string]domain.TrackedOpportunity, len(out))
	for i, tr := range out {
		opps[i] = tr.Opportunity
		byKey[tr.Opportunity.Key()] = tr
	}
	arbitrage.SortByProfit(opps)
	for i, o := range opps {
		out[i] = byKey[o.Key()]
	}
	return out
}

// Len is the number of tracked entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func copyTracked(tr *domain.TrackedOpportunity) domain.TrackedOpportunity {
	c := *tr
	c.SpreadHistory = append([]float64(nil), tr.SpreadHistory...)
	return c
}
