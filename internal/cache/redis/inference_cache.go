package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// InferenceCache is the shared tier of the inference cache: JSON values
// with a per-key TTL.
type InferenceCache struct {
	client *Client
}

// NewInferenceCache creates an InferenceCache backed by the given Client.
func NewInferenceCache(c *Client) *InferenceCache {
	return &InferenceCache{client: c}
}

// Get returns domain.ErrNotFound on a miss.
func (ic *InferenceCache) Get(ctx context.Context, key string) (domain.Inference, error) {
	data, err := ic.client.Underlying().Get(ctx, ic.client.Key("inference", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Inference{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Inference{}, fmt.Errorf("redis: get inference %s: %w", key, err)
	}
	return decodeInference(data)
}

// Set stores inf under key for ttl.
func (ic *InferenceCache) Set(ctx context.Context, key string, inf domain.Inference, ttl time.Duration) error {
	data, err := json.Marshal(inf)
	if err != nil {
		return fmt.Errorf("redis: marshal inference: %w", err)
	}
	if err := ic.client.Underlying().Set(ctx, ic.client.Key("inference", key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set inference %s: %w", key, err)
	}
	return nil
}

func decodeInference(data []byte) (domain.Inference, error) {
	var inf domain.Inference
	if err := json.Unmarshal(data, &inf); err != nil {
		return domain.Inference{}, fmt.Errorf("redis: decode inference: %w", err)
	}
	if !inf.Type.Valid() {
		return domain.Inference{}, fmt.Errorf("redis: decode inference: unknown type %q", inf.Type)
	}
	return inf, nil
}

// Compile-time interface check.
var _ domain.InferenceCache = (*InferenceCache)(nil)
