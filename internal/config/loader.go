package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYARB_* environment variable overrides, and
// returns the final Config. A missing file leaves the defaults in place. The
// returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Detection ──
	setDuration(&cfg.Detection.Interval, "POLYARB_DETECTION_INTERVAL")
	setFloat64(&cfg.Detection.MinProfitPct, "POLYARB_DETECTION_MIN_PROFIT_PCT")
	setFloat64(&cfg.Detection.MinConfidence, "POLYARB_DETECTION_MIN_CONFIDENCE")
	setFloat64(&cfg.Detection.MinLiquidity, "POLYARB_DETECTION_MIN_LIQUIDITY")
	setFloat64(&cfg.Detection.FeePct, "POLYARB_DETECTION_FEE_PCT")
	setFloat64(&cfg.Detection.SimilarityThreshold, "POLYARB_DETECTION_SIMILARITY_THRESHOLD")
	setDuration(&cfg.Detection.TrackingTTL, "POLYARB_DETECTION_TRACKING_TTL")
	setBool(&cfg.Detection.MultiOutcome.Enabled, "POLYARB_DETECTION_MULTI_OUTCOME_ENABLED")
	setBool(&cfg.Detection.NegRisk.Enabled, "POLYARB_DETECTION_NEGRISK_ENABLED")
	setBool(&cfg.Detection.CrossMarket.Enabled, "POLYARB_DETECTION_CROSS_MARKET_ENABLED")
	setBool(&cfg.Detection.RelatedMarket.Enabled, "POLYARB_DETECTION_RELATED_MARKET_ENABLED")
	setBool(&cfg.Detection.Semantic.Enabled, "POLYARB_DETECTION_SEMANTIC_ENABLED")

	// ── Inference ──
	setStr(&cfg.Inference.Provider, "POLYARB_INFERENCE_PROVIDER")
	setStr(&cfg.Inference.Endpoint, "POLYARB_INFERENCE_ENDPOINT")
	setStr(&cfg.Inference.Model, "POLYARB_INFERENCE_MODEL")
	setStr(&cfg.Inference.APIKey, "POLYARB_INFERENCE_API_KEY")
	setStr(&cfg.Inference.APIKey, "OPENAI_API_KEY") // compatibility alias
	setInt(&cfg.Inference.RateLimitPerMinute, "POLYARB_INFERENCE_RATE_LIMIT_PER_MINUTE")
	setDuration(&cfg.Inference.CacheTTL, "POLYARB_INFERENCE_CACHE_TTL")
	setInt(&cfg.Inference.CacheSize, "POLYARB_INFERENCE_CACHE_SIZE")
	setFloat64(&cfg.Inference.MinConfidence, "POLYARB_INFERENCE_MIN_CONFIDENCE")
	setInt(&cfg.Inference.MaxPairs, "POLYARB_INFERENCE_MAX_PAIRS")
	setDuration(&cfg.Inference.Timeout, "POLYARB_INFERENCE_TIMEOUT")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxPositionSize, "POLYARB_RISK_MAX_POSITION_SIZE")
	setFloat64(&cfg.Risk.MaxTotalExposure, "POLYARB_RISK_MAX_TOTAL_EXPOSURE")
	setFloat64(&cfg.Risk.MaxDailyLoss, "POLYARB_RISK_MAX_DAILY_LOSS")
	setFloat64(&cfg.Risk.MinLiquidity, "POLYARB_RISK_MIN_LIQUIDITY")
	setDuration(&cfg.Risk.Cooldown, "POLYARB_RISK_COOLDOWN")
	setFloat64(&cfg.Risk.MinNetProfitPct, "POLYARB_RISK_MIN_NET_PROFIT_PCT")

	// ── Execution ──
	setBool(&cfg.Execution.Enabled, "POLYARB_EXECUTION_ENABLED")
	setFloat64(&cfg.Execution.StartingBankroll, "POLYARB_EXECUTION_STARTING_BANKROLL")
	setDuration(&cfg.Execution.ExecutionDelay, "POLYARB_EXECUTION_DELAY")
	setFloat64(&cfg.Execution.Leg1FailureRate, "POLYARB_EXECUTION_LEG1_FAILURE_RATE")
	setFloat64(&cfg.Execution.Leg2FailureRate, "POLYARB_EXECUTION_LEG2_FAILURE_RATE")
	setFloat64(&cfg.Execution.PartialFillRate, "POLYARB_EXECUTION_PARTIAL_FILL_RATE")
	setDuration(&cfg.Execution.DedupTTL, "POLYARB_EXECUTION_DEDUP_TTL")
	setUint64(&cfg.Execution.Seed, "POLYARB_EXECUTION_SEED")
	setStr(&cfg.Execution.ArchiveCron, "POLYARB_EXECUTION_ARCHIVE_CRON")

	// ── Slippage ──
	setFloat64(&cfg.Slippage.BaseBps, "POLYARB_SLIPPAGE_BASE_BPS")
	setFloat64(&cfg.Slippage.ImpactFactor, "POLYARB_SLIPPAGE_IMPACT_FACTOR")
	setFloat64(&cfg.Slippage.Noise, "POLYARB_SLIPPAGE_NOISE")

	// ── Feed ──
	setStr(&cfg.Feed.Source, "POLYARB_FEED_SOURCE")
	setStr(&cfg.Feed.GammaHost, "POLYARB_FEED_GAMMA_HOST")
	setStr(&cfg.Feed.FilePath, "POLYARB_FEED_FILE_PATH")
	setInt(&cfg.Feed.PageSize, "POLYARB_FEED_PAGE_SIZE")
	setInt(&cfg.Feed.MaxMarkets, "POLYARB_FEED_MAX_MARKETS")

	// ── Resolution ──
	setBool(&cfg.Resolution.Enabled, "POLYARB_RESOLUTION_ENABLED")
	setDuration(&cfg.Resolution.Interval, "POLYARB_RESOLUTION_INTERVAL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POLYARB_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POLYARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "POLYARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYARB_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYARB_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYARB_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYARB_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "POLYARB_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYARB_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYARB_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYARB_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYARB_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "POLYARB_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "POLYARB_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYARB_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYARB_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYARB_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POLYARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "POLYARB_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYARB_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POLYARB_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "POLYARB_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "POLYARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POLYARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POLYARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POLYARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYARB_MODE")
	setStr(&cfg.LogLevel, "POLYARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
