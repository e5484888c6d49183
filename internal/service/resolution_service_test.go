package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

type fakeExecStore struct {
	pending  []domain.UnresolvedExecution
	resolved map[string]domain.Resolution
}

func (s *fakeExecStore) Create(context.Context, domain.ExecutionResult) (string, error) {
	return "", nil
}

func (s *fakeExecStore) ListRecent(context.Context, int) ([]domain.ExecutionResult, error) {
	return nil, nil
}

func (s *fakeExecStore) ListUnresolved(_ context.Context, limit int) ([]domain.UnresolvedExecution, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeExecStore) MarkResolved(_ context.Context, id string, res domain.Resolution) error {
	if s.resolved == nil {
		s.resolved = make(map[string]domain.Resolution)
	}
	s.resolved[id] = res
	return nil
}

type fakeResolutions struct {
	byMarket map[string]domain.Resolution
	calls    map[string]int
}

func (f *fakeResolutions) Resolution(_ context.Context, marketID string) (domain.Resolution, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[marketID]++
	r, ok := f.byMarket[marketID]
	if !ok {
		return domain.Resolution{}, domain.ErrNotFound
	}
	return r, nil
}

type closeRecorder struct{ closed []string }

func (c *closeRecorder) ClosePosition(marketID string) { c.closed = append(c.closed, marketID) }

func TestResolutionService_Poll(t *testing.T) {
	at := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	store := &fakeExecStore{pending: []domain.UnresolvedExecution{
		{ExecutionID: "e1", MarketID: "settled"},
		{ExecutionID: "e2", MarketID: "open"},
		{ExecutionID: "e3", MarketID: "settled"},
		{ExecutionID: "e4", MarketID: "unknown"},
	}}
	src := &fakeResolutions{byMarket: map[string]domain.Resolution{
		"settled": {MarketID: "settled", Closed: true, YesWon: true, ResolvedAt: at},
		"open":    {MarketID: "open"},
	}}
	closer := &closeRecorder{}
	svc := NewResolutionService(store, src, closer, discardLogger())

	n, err := svc.Poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Contains(t, store.resolved, "e1")
	assert.Contains(t, store.resolved, "e3")
	assert.True(t, store.resolved["e1"].YesWon)
	assert.Equal(t, 1, src.calls["settled"])
	assert.Equal(t, []string{"settled"}, closer.closed)
}

func TestResolutionService_PollCancelled(t *testing.T) {
	store := &fakeExecStore{pending: []domain.UnresolvedExecution{{ExecutionID: "e1", MarketID: "m"}}}
	svc := NewResolutionService(store, &fakeResolutions{}, nil, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := svc.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}
