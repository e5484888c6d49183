package inference

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

// Limiter blocks until a request may proceed.
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLocalLimiter allows perMinute requests per rolling minute with a burst
// of the same size.
func NewLocalLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

// SharedLimiter spends from a budget shared by every process using the same
// key.
type SharedLimiter struct {
	rl     domain.RateLimiter
	key    string
	limit  int
	window time.Duration
}

// NewSharedLimiter wraps a distributed rate limiter.
func NewSharedLimiter(rl domain.RateLimiter, key string, perMinute int) *SharedLimiter {
	return &SharedLimiter{rl: rl, key: key, limit: perMinute, window: time.Minute}
}

// Wait blocks until the shared window has room.
func (s *SharedLimiter) Wait(ctx context.Context) error {
	return s.rl.Wait(ctx, s.key, s.limit, s.window)
}

// Chain waits on every limiter in order.
type Chain []Limiter

// Wait implements Limiter.
func (c Chain) Wait(ctx context.Context) error {
	for _, l := range c {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}
