package inference

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/metrics"
)

// PairKey is the cache key for two market IDs in canonical (sorted) order.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Cache is a two-tier inference cache: an in-process size-bounded LRU with
// TTL, backed by an optional shared tier. Shared-tier errors are logged and
// treated as misses.
type Cache struct {
	local  *expirable.LRU[string, domain.Inference]
	shared domain.InferenceCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates the cache. shared may be nil.
func NewCache(size int, ttl time.Duration, shared domain.InferenceCache, logger *slog.Logger) *Cache {
	if size <= 0 {
		size = 1000
	}
	return &Cache{
		local:  expirable.NewLRU[string, domain.Inference](size, nil, ttl),
		shared: shared,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "inference_cache")),
	}
}

// Get looks up key locally, then in the shared tier. A shared hit is copied
// into the local tier.
func (c *Cache) Get(ctx context.Context, key string) (domain.Inference, bool) {
	if inf, ok := c.local.Get(key); ok {
		metrics.InferenceCache.WithLabelValues("local", "hit").Inc()
		return inf, true
	}
	metrics.InferenceCache.WithLabelValues("local", "miss").Inc()
	if c.shared == nil {
		return domain.Inference{}, false
	}

	inf, err := c.shared.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.WarnContext(ctx, "shared cache get failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		metrics.InferenceCache.WithLabelValues("shared", "miss").Inc()
		return domain.Inference{}, false
	}
	metrics.InferenceCache.WithLabelValues("shared", "hit").Inc()
	c.local.Add(key, inf)
	return inf, true
}

// Set writes both tiers.
func (c *Cache) Set(ctx context.Context, key string, inf domain.Inference) {
	c.local.Add(key, inf)
	if c.shared == nil {
		return
	}
	if err := c.shared.Set(ctx, key, inf, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "shared cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Len is the number of entries in the local tier.
func (c *Cache) Len() int { return c.local.Len() }
