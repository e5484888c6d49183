package app

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/alanyoungcy/polyarb/internal/arbitrage"
	"github.com/alanyoungcy/polyarb/internal/config"
	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/feed"
	"github.com/alanyoungcy/polyarb/internal/inference"
)

// inferenceRateKey is the shared limiter bucket for inference calls.
const inferenceRateKey = "inference"

// buildDetectors registers every detector switched on in cfg. cache and
// limiter are the optional shared Redis backends for the semantic detector.
func buildDetectors(cfg *config.Config, cache domain.InferenceCache, limiter domain.RateLimiter, logger *slog.Logger) *arbitrage.Registry {
	d := cfg.Detection
	th := arbitrage.Thresholds{
		MinLiquidity:  d.MinLiquidity,
		MinProfitPct:  d.MinProfitPct,
		MinConfidence: d.MinConfidence,
		FeePct:        d.FeePct,
	}

	reg := arbitrage.NewRegistry()
	if d.MultiOutcome.Enabled {
		reg.Register(arbitrage.NewMultiOutcomeSpread(th, logger))
	}
	if d.NegRisk.Enabled {
		reg.Register(arbitrage.NewNegRisk(arbitrage.NegRiskConfig{
			Thresholds:  th,
			RequireFlag: d.NegRiskRequireFlag,
		}, logger))
	}
	if d.CrossMarket.Enabled {
		cm := arbitrage.DefaultCrossMarketConfig(th)
		cm.SimilarityThreshold = d.SimilarityThreshold
		reg.Register(arbitrage.NewCrossMarket(cm, logger))
	}
	if d.RelatedMarket.Enabled {
		reg.Register(arbitrage.NewRelatedMarket(arbitrage.RelatedMarketConfig{Thresholds: th}, logger))
	}
	if cfg.SemanticEnabled() {
		reg.Register(arbitrage.NewSemantic(arbitrage.SemanticConfig{
			Thresholds:             th,
			MaxPairs:               cfg.Inference.MaxPairs,
			MinInferenceConfidence: cfg.Inference.MinConfidence,
		}, buildClassifier(cfg.Inference, cache, limiter, logger), logger))
	} else if d.Semantic.Enabled {
		logger.Warn("semantic detector enabled without an inference provider; skipping")
	}
	return reg
}

func buildClassifier(cfg config.InferenceConfig, shared domain.InferenceCache, rl domain.RateLimiter, logger *slog.Logger) *inference.Service {
	client := inference.NewClient(inference.ClientConfig{
		Endpoint:   cfg.Endpoint,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout.Duration,
		MaxRetries: 2,
	})
	cache := inference.NewCache(cfg.CacheSize, cfg.CacheTTL.Duration, shared, logger)

	limiters := inference.Chain{inference.NewLocalLimiter(cfg.RateLimitPerMinute)}
	if rl != nil && cfg.RateLimitPerMinute > 0 {
		limiters = append(limiters, inference.NewSharedLimiter(rl, inferenceRateKey, cfg.RateLimitPerMinute))
	}
	return inference.NewService(client, cache, limiters, logger)
}

// buildSource returns the configured market feed.
func buildSource(cfg config.FeedConfig, deps *Dependencies, logger *slog.Logger) (domain.MarketSource, error) {
	switch strings.ToLower(cfg.Source) {
	case "gamma":
		return feed.NewGammaSource(deps.Gamma, cfg.PageSize, cfg.MaxMarkets, logger), nil
	case "file":
		return feed.NewFileSource(cfg.FilePath), nil
	default:
		return nil, fmt.Errorf("app: unknown feed source %q", cfg.Source)
	}
}

// newRand returns a seeded PCG source. Zero seeds from the clock; offset
// keeps independent streams apart under a fixed seed.
func newRand(seed, offset uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^offset))
}
