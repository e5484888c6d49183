package inference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/metrics"
)

// Completer sends a prompt to a text-inference provider.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Service classifies market pairs, consulting the cache first. Unparseable
// replies are cached as "none" so the same pair is not paid for again;
// transport failures are returned and not cached.
type Service struct {
	completer Completer
	cache     *Cache
	limiter   Limiter
	logger    *slog.Logger
}

var _ arbitrage.Classifier = (*Service)(nil)

// NewService creates the classifier. limiter may be nil.
func NewService(completer Completer, cache *Cache, limiter Limiter, logger *slog.Logger) *Service {
	return &Service{
		completer: completer,
		cache:     cache,
		limiter:   limiter,
		logger:    logger.With(slog.String("component", "inference")),
	}
}

// Classify returns the relationship of a to b.
func (s *Service) Classify(ctx context.Context, a, b domain.MarketSnapshot) (domain.Inference, error) {
	flip := b.ID < a.ID
	if flip {
		a, b = b, a
	}
	key := PairKey(a.ID, b.ID)
	if inf, ok := s.cache.Get(ctx, key); ok {
		return orient(inf, flip), nil
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return domain.Inference{}, fmt.Errorf("inference: wait for rate limit: %w", err)
		}
	}

	reply, err := s.completer.Complete(ctx, systemPrompt, userPrompt(a, b))
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("error").Inc()
		return domain.Inference{}, fmt.Errorf("inference: classify %s/%s: %w", a.ID, b.ID, err)
	}

	inf, err := Parse(reply)
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("invalid").Inc()
		s.logger.WarnContext(ctx, "unparseable inference reply, caching as none",
			slog.String("pair", key),
			slog.String("error", err.Error()),
		)
		inf = domain.NoDependency("unparseable response")
	} else {
		metrics.InferenceRequests.WithLabelValues("ok").Inc()
	}

	s.cache.Set(ctx, key, inf)
	s.logger.DebugContext(ctx, "pair classified",
		slog.String("pair", key),
		slog.String("relationship", string(inf.Type)),
		slog.Float64("confidence", inf.Confidence),
	)
	return orient(inf, flip), nil
}
