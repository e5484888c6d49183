package domain

import "context"

// MarketSource supplies a fresh set of market snapshots each cycle.
type MarketSource interface {
	Name() string
	Fetch(ctx context.Context) ([]MarketSnapshot, error)
}

// ResolutionSource reports whether a market has settled.
type ResolutionSource interface {
	Resolution(ctx context.Context, marketID string) (Resolution, error)
}
