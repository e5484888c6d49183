package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/notify"
)

// Notifier delivers human-readable alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// OpportunityService persists, publishes, and announces opportunities. Every
// sink is optional and best effort: failures are logged and never undo the
// in-memory state.
type OpportunityService struct {
	store    domain.OpportunityStore
	bus      domain.SignalBus
	notifier Notifier
	logger   *slog.Logger
}

// NewOpportunityService creates an OpportunityService. Any dependency may be
// nil.
func NewOpportunityService(
	store domain.OpportunityStore,
	bus domain.SignalBus,
	notifier Notifier,
	logger *slog.Logger,
) *OpportunityService {
	return &OpportunityService{
		store:    store,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "opportunity_service")),
	}
}

// Record saves a fresh opportunity (when it has no ID yet), publishes it, and
// sends an alert. It returns the opportunity's ID.
func (s *OpportunityService) Record(ctx context.Context, opp domain.Opportunity) string {
	if opp.ID == "" {
		opp.ID = s.create(ctx, opp)
	}

	s.publish(ctx, domain.ChannelOpportunities, map[string]any{
		"event":       "opportunity_detected",
		"id":          opp.ID,
		"key":         opp.Key(),
		"type":        opp.Type,
		"profit_pct":  opp.ProfitPct,
		"confidence":  opp.Confidence,
		"direction":   opp.Direction,
		"opportunity": opp,
	})

	if s.notifier != nil {
		title, msg := notify.FormatOpportunity(opp)
		if err := s.notifier.Notify(ctx, notify.EventOpportunityDetected, title, msg); err != nil {
			s.logger.WarnContext(ctx, "opportunity alert failed",
				slog.String("id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "opportunity recorded",
		slog.String("id", opp.ID),
		slog.String("type", string(opp.Type)),
		slog.String("key", opp.Key()),
		slog.Float64("profit_pct", opp.ProfitPct),
		slog.Float64("confidence", opp.Confidence),
	)
	return opp.ID
}

func (s *OpportunityService) create(ctx context.Context, opp domain.Opportunity) string {
	if s.store == nil {
		return uuid.NewString()
	}
	id, err := s.store.Create(ctx, opp)
	if err != nil {
		s.logger.WarnContext(ctx, "persist opportunity failed",
			slog.String("key", opp.Key()),
			slog.String("error", err.Error()),
		)
		return uuid.NewString()
	}
	return id
}

// Expire marks evicted opportunities as expired in the store.
func (s *OpportunityService) Expire(ctx context.Context, expired []domain.TrackedOpportunity) {
	for _, tr := range expired {
		s.setStatus(ctx, tr.Opportunity.ID, domain.OppStatusExpired)
	}
}

// MarkExecuted marks a traded opportunity.
func (s *OpportunityService) MarkExecuted(ctx context.Context, id string) {
	s.setStatus(ctx, id, domain.OppStatusExecuted)
}

func (s *OpportunityService) setStatus(ctx context.Context, id string, status domain.OpportunityStatus) {
	if s.store == nil || id == "" {
		return
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		s.logger.WarnContext(ctx, "update opportunity status failed",
			slog.String("id", id),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}

// ListRecent reads back persisted opportunities.
func (s *OpportunityService) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRecent(ctx, limit)
}

func (s *OpportunityService) publish(ctx context.Context, channel string, evt map[string]any) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.WarnContext(ctx, "marshal event failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
