package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/metrics"
	"github.com/alanyoungcy/polyarb/internal/notify"
)

// ExecutionService is the sink for finished paper trades: store, bus, alert,
// and metrics, all best effort.
type ExecutionService struct {
	store    domain.ExecutionStore
	bus      domain.SignalBus
	notifier Notifier
	logger   *slog.Logger
}

// NewExecutionService creates an ExecutionService. Any dependency may be nil.
func NewExecutionService(
	store domain.ExecutionStore,
	bus domain.SignalBus,
	notifier Notifier,
	logger *slog.Logger,
) *ExecutionService {
	return &ExecutionService{
		store:    store,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "execution_service")),
	}
}

// Record persists and announces res, returning it with its ID set.
func (s *ExecutionService) Record(ctx context.Context, res domain.ExecutionResult) domain.ExecutionResult {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if s.store != nil {
		if id, err := s.store.Create(ctx, res); err != nil {
			s.logger.WarnContext(ctx, "persist execution failed",
				slog.String("id", res.ID),
				slog.String("error", err.Error()),
			)
		} else if id != "" {
			res.ID = id
		}
	}

	metrics.Executions.WithLabelValues(string(res.OpportunityType), string(res.Status)).Inc()
	metrics.RecordProfit(res.RealizedProfit)
	metrics.Bankroll.Set(res.BankrollAfter)

	if s.bus != nil {
		if payload, err := json.Marshal(map[string]any{"event": "trade_executed", "execution": res}); err == nil {
			if err := s.bus.Publish(ctx, domain.ChannelExecutions, payload); err != nil {
				s.logger.WarnContext(ctx, "publish execution failed", slog.String("error", err.Error()))
			}
		}
	}

	if s.notifier != nil {
		title, msg := notify.FormatExecution(res)
		if err := s.notifier.Notify(ctx, notify.EventTradeExecuted, title, msg); err != nil {
			s.logger.WarnContext(ctx, "execution alert failed", slog.String("error", err.Error()))
		}
	}
	return res
}

// ListRecent reads back persisted executions.
func (s *ExecutionService) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionResult, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRecent(ctx, limit)
}
