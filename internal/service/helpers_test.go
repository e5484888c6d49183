package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRisk(cfg RiskConfig, c *clock) *RiskManager {
	r := NewRiskManager(cfg, discardLogger())
	r.now = c.now
	r.state.DayStart = c.t.Truncate(24 * time.Hour)
	return r
}

// spreadOpp is an underpriced single-market opportunity, so its first leg
// buys.
func spreadOpp(profit, liquidity float64) domain.Opportunity {
	return domain.Opportunity{
		Type:       domain.OppMultiOutcome,
		Primary:    domain.MarketRef{ID: "m1", Question: "Will it rain?", Price: 0.45, Liquidity: liquidity},
		ProfitPct:  profit,
		Confidence: 0.7,
		Direction:  domain.DirectionUnderpriced,
		MultiOutcome: &domain.MultiOutcomeDetail{
			YesPrice: 0.45, NoPrice: 0.50, Sum: 0.95,
		},
	}
}

type fakeOppStore struct {
	mu       sync.Mutex
	created  []domain.Opportunity
	statuses map[string]domain.OpportunityStatus
	err      error
}

func (s *fakeOppStore) Create(_ context.Context, opp domain.Opportunity) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, opp)
	return "opp-" + opp.Primary.ID, nil
}

func (s *fakeOppStore) UpdateStatus(_ context.Context, id string, status domain.OpportunityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses == nil {
		s.statuses = make(map[string]domain.OpportunityStatus)
	}
	s.statuses[id] = status
	return nil
}

func (s *fakeOppStore) ListRecent(context.Context, int) ([]domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Opportunity(nil), s.created...), nil
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu   sync.Mutex
	msgs []published
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, published{channel: channel, payload: payload})
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (b *fakeBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (b *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}
