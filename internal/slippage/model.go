// Package slippage estimates the execution-price impact of a hypothetical
// order against a market described by a single liquidity figure.
//
// Liquidity is a scalar rather than a depth curve, so every estimate here is
// an approximation of the real book: impact grows linearly with the
// size-to-liquidity ratio and is otherwise blind to how depth is distributed
// across price levels.
package slippage

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/alanyoungcy/polyarb/internal/domain"
)

const (
	// MinPrice and MaxPrice bound every simulated execution price.
	MinPrice = 0.01
	MaxPrice = 0.99

	minConfidence    = 0.3
	extremityHigh    = 0.9
	extremityLow     = 0.1
	defaultNoise     = 0.2
	defaultExtremity = 10.0
)

// Config holds the model coefficients.
type Config struct {
	// BaseBps is charged on every order regardless of size.
	BaseBps float64
	// ImpactFactor scales the size/liquidity ratio into a price fraction.
	ImpactFactor float64
	// MaxExtremityBps is the ramp ceiling for orders near 0 or 1.
	MaxExtremityBps float64
	// Noise is the half-width of the uniform multiplicative perturbation
	// applied by EstimateWithNoise (0.2 means ±20%).
	Noise float64
}

// DefaultConfig returns the coefficients used when none are configured.
func DefaultConfig() Config {
	return Config{
		BaseBps:         2.0,
		ImpactFactor:    0.1,
		MaxExtremityBps: defaultExtremity,
		Noise:           defaultNoise,
	}
}

// Model is safe for concurrent use.
type Model struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Model. A nil rng is replaced by a randomly seeded source.
func New(cfg Config, rng *rand.Rand) *Model {
	if cfg.MaxExtremityBps <= 0 {
		cfg.MaxExtremityBps = defaultExtremity
	}
	if cfg.Noise < 0 {
		cfg.Noise = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Model{cfg: cfg, rng: rng}
}

// Config returns the model coefficients.
func (m *Model) Config() Config { return m.cfg }

// Estimate returns the deterministic slippage estimate for an order of size
// dollars at price against the given liquidity.
func (m *Model) Estimate(price, size, liquidity float64, side domain.Side) domain.SlippageEstimate {
	bps := m.cfg.BaseBps + m.impactBps(size, liquidity) + m.extremityBps(price, side)
	return m.build(price, size, liquidity, side, bps)
}

// EstimateWithNoise perturbs the basis-point estimate by a uniform factor in
// [1-Noise, 1+Noise] and recomputes the execution price from it.
func (m *Model) EstimateWithNoise(price, size, liquidity float64, side domain.Side) domain.SlippageEstimate {
	bps := m.cfg.BaseBps + m.impactBps(size, liquidity) + m.extremityBps(price, side)

	m.mu.Lock()
	u := m.rng.Float64()
	m.mu.Unlock()

	bps *= 1 + m.cfg.Noise*(2*u-1)
	if bps < 0 {
		bps = 0
	}
	return m.build(price, size, liquidity, side, bps)
}

// Cost converts an estimate into the dollar cost of slippage on size.
func Cost(est domain.SlippageEstimate, size float64) float64 {
	return size * est.Bps / 10_000
}

func (m *Model) build(price, size, liquidity float64, side domain.Side, bps float64) domain.SlippageEstimate {
	return domain.SlippageEstimate{
		Bps:            bps,
		ExecutionPrice: ExecutionPrice(price, bps, side),
		Confidence:     Confidence(size, liquidity),
		Liquidity:      liquidity,
	}
}

func (m *Model) impactBps(size, liquidity float64) float64 {
	if size <= 0 {
		return 0
	}
	if liquidity <= 0 {
		// No depth at all: charge the whole order as impact.
		return m.cfg.ImpactFactor * 10_000
	}
	return size / liquidity * m.cfg.ImpactFactor * 10_000
}

// extremityBps ramps quadratically from 0 to MaxExtremityBps as a buy moves
// from 0.9 toward 1, or a sell from 0.1 toward 0.
func (m *Model) extremityBps(price float64, side domain.Side) float64 {
	var x float64
	switch {
	case side == domain.SideBuy && price > extremityHigh:
		x = (price - extremityHigh) / (1 - extremityHigh)
	case side == domain.SideSell && price < extremityLow:
		x = (extremityLow - price) / extremityLow
	default:
		return 0
	}
	x = math.Min(x, 1)
	return m.cfg.MaxExtremityBps * x * x
}

// ExecutionPrice shifts price against the trader by bps and clamps the
// result to [MinPrice, MaxPrice].
func ExecutionPrice(price, bps float64, side domain.Side) float64 {
	frac := bps / 10_000
	p := price * (1 + frac)
	if side == domain.SideSell {
		p = price * (1 - frac)
	}
	return clamp(p, MinPrice, MaxPrice)
}

// Confidence decays with the size/liquidity ratio and never drops below 0.3.
func Confidence(size, liquidity float64) float64 {
	if liquidity <= 0 {
		return minConfidence
	}
	return clamp(1-2*size/liquidity, minConfidence, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
