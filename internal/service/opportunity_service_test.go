package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/notify"
)

func TestOpportunityService_Record(t *testing.T) {
	store := &fakeOppStore{}
	bus := &fakeBus{}
	n := &fakeNotifier{}
	svc := NewOpportunityService(store, bus, n, discardLogger())

	id := svc.Record(context.Background(), spreadOpp(5, 50_000))

	assert.Equal(t, "opp-m1", id)
	require.Len(t, bus.msgs, 1)
	assert.Equal(t, domain.ChannelOpportunities, bus.msgs[0].channel)
	var evt map[string]any
	require.NoError(t, json.Unmarshal(bus.msgs[0].payload, &evt))
	assert.Equal(t, "opportunity_detected", evt["event"])
	assert.Equal(t, "opp-m1", evt["id"])
	assert.Equal(t, "multi_outcome_spread:m1", evt["key"])
	assert.Equal(t, []string{notify.EventOpportunityDetected}, n.events)
}

func TestOpportunityService_StoreFailureFallsBackToUUID(t *testing.T) {
	store := &fakeOppStore{err: errors.New("connection refused")}
	svc := NewOpportunityService(store, nil, nil, discardLogger())

	id := svc.Record(context.Background(), spreadOpp(5, 50_000))

	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestOpportunityService_KeepsExistingID(t *testing.T) {
	store := &fakeOppStore{}
	svc := NewOpportunityService(store, nil, nil, discardLogger())
	opp := spreadOpp(5, 50_000)
	opp.ID = "known"

	assert.Equal(t, "known", svc.Record(context.Background(), opp))
	assert.Empty(t, store.created)
}

func TestOpportunityService_StatusUpdates(t *testing.T) {
	store := &fakeOppStore{}
	svc := NewOpportunityService(store, nil, nil, discardLogger())
	ctx := context.Background()

	a, b := spreadOpp(5, 50_000), spreadOpp(5, 50_000)
	a.ID, b.ID = "a", ""
	svc.Expire(ctx, []domain.TrackedOpportunity{{Opportunity: a}, {Opportunity: b}})
	svc.MarkExecuted(ctx, "c")

	assert.Equal(t, map[string]domain.OpportunityStatus{
		"a": domain.OppStatusExpired,
		"c": domain.OppStatusExecuted,
	}, store.statuses)
}

func TestOpportunityService_NoSinks(t *testing.T) {
	svc := NewOpportunityService(nil, nil, nil, discardLogger())
	ctx := context.Background()

	id := svc.Record(ctx, spreadOpp(5, 50_000))
	assert.NotEmpty(t, id)
	svc.MarkExecuted(ctx, id)

	recent, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestExecutionService_Record(t *testing.T) {
	bus := &fakeBus{}
	n := &fakeNotifier{}
	svc := NewExecutionService(nil, bus, n, discardLogger())

	res := svc.Record(context.Background(), domain.ExecutionResult{
		OpportunityKey:  "multi_outcome_spread:m1",
		OpportunityType: domain.OppMultiOutcome,
		Size:            50,
		RealizedProfit:  1.2,
		Status:          domain.ExecComplete,
		BankrollAfter:   1_001.2,
	})

	assert.NotEmpty(t, res.ID)
	require.Len(t, bus.msgs, 1)
	assert.Equal(t, domain.ChannelExecutions, bus.msgs[0].channel)
	assert.Equal(t, []string{notify.EventTradeExecuted}, n.events)
}
