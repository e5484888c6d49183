package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// PositionCloser releases risk exposure for a settled market.
type PositionCloser interface {
	ClosePosition(marketID string)
}

// ResolutionService polls the venue for the settlement of markets that paper
// trades were placed in and records the outcome. Bankroll is not adjusted:
// arbitrage profit is realized at entry.
type ResolutionService struct {
	executions domain.ExecutionStore
	source     domain.ResolutionSource
	positions  PositionCloser
	batch      int
	logger     *slog.Logger
}

// NewResolutionService creates the poller. positions may be nil.
func NewResolutionService(
	executions domain.ExecutionStore,
	source domain.ResolutionSource,
	positions PositionCloser,
	logger *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		executions: executions,
		source:     source,
		positions:  positions,
		batch:      100,
		logger:     logger.With(slog.String("component", "resolution_service")),
	}
}

// Poll checks one batch of unresolved executions and returns how many were
// marked resolved. Lookups for one market are shared across executions.
func (s *ResolutionService) Poll(ctx context.Context) (int, error) {
	pending, err := s.executions.ListUnresolved(ctx, s.batch)
	if err != nil {
		return 0, fmt.Errorf("resolution_service: list unresolved: %w", err)
	}

	lookups := make(map[string]*domain.Resolution)
	resolved := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		res, ok := lookups[p.MarketID]
		if !ok {
			r, err := s.source.Resolution(ctx, p.MarketID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				lookups[p.MarketID] = nil
				continue
			case err != nil:
				s.logger.WarnContext(ctx, "resolution lookup failed",
					slog.String("market_id", p.MarketID),
					slog.String("error", err.Error()),
				)
				continue
			}
			res = &r
			lookups[p.MarketID] = res
			if res.Closed && s.positions != nil {
				s.positions.ClosePosition(p.MarketID)
			}
		}
		if res == nil || !res.Closed {
			continue
		}
		if err := s.executions.MarkResolved(ctx, p.ExecutionID, *res); err != nil {
			s.logger.WarnContext(ctx, "mark resolved failed",
				slog.String("execution_id", p.ExecutionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		resolved++
	}
	if resolved > 0 {
		s.logger.InfoContext(ctx, "executions resolved", slog.Int("count", resolved))
	}
	return resolved, nil
}

// Run polls on interval until ctx is cancelled.
func (s *ResolutionService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Poll(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "resolution poll failed", slog.String("error", err.Error()))
			}
		}
	}
}
