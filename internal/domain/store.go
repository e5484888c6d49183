package domain

import (
	"context"
	"time"
)

// OpportunityStore persists detected opportunities. Create assigns and
// returns the opaque identifier used for later status updates.
type OpportunityStore interface {
	Create(ctx context.Context, opp Opportunity) (string, error)
	UpdateStatus(ctx context.Context, id string, status OpportunityStatus) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
}

// ExecutionStore persists simulated execution results.
type ExecutionStore interface {
	Create(ctx context.Context, res ExecutionResult) (string, error)
	ListRecent(ctx context.Context, limit int) ([]ExecutionResult, error)
	// ListUnresolved returns completed executions whose primary market has
	// no recorded resolution yet, oldest first.
	ListUnresolved(ctx context.Context, limit int) ([]UnresolvedExecution, error)
	MarkResolved(ctx context.Context, id string, res Resolution) error
}

// UnresolvedExecution is the minimum the resolution poller needs.
type UnresolvedExecution struct {
	ExecutionID string
	MarketID    string
	CompletedAt time.Time
}
