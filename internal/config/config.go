// Package config defines the top-level configuration for the arbitrage
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYARB_* environment variables.
type Config struct {
	Detection  DetectionConfig  `toml:"detection"`
	Inference  InferenceConfig  `toml:"inference"`
	Risk       RiskConfig       `toml:"risk"`
	Execution  ExecutionConfig  `toml:"execution"`
	Slippage   SlippageConfig   `toml:"slippage"`
	Feed       FeedConfig       `toml:"feed"`
	Resolution ResolutionConfig `toml:"resolution"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// DetectionConfig holds the cycle cadence, shared thresholds and detector
// switches.
type DetectionConfig struct {
	Interval            duration `toml:"interval"`
	MinProfitPct        float64  `toml:"min_profit_pct"`
	MinConfidence       float64  `toml:"min_confidence"`
	MinLiquidity        float64  `toml:"min_liquidity"`
	FeePct              float64  `toml:"fee_pct"`
	SimilarityThreshold float64  `toml:"similarity_threshold"`
	TrackingTTL         duration `toml:"tracking_ttl"`
	// NegRiskRequireFlag groups only markets the venue flags as neg-risk.
	NegRiskRequireFlag bool `toml:"negrisk_require_flag"`

	MultiOutcome  DetectorToggle `toml:"multi_outcome"`
	NegRisk       DetectorToggle `toml:"negrisk"`
	CrossMarket   DetectorToggle `toml:"cross_market"`
	RelatedMarket DetectorToggle `toml:"related_market"`
	Semantic      DetectorToggle `toml:"semantic"`
}

// DetectorToggle switches one detector on or off.
type DetectorToggle struct {
	Enabled bool `toml:"enabled"`
}

// InferenceConfig holds the text-inference provider used by the semantic
// detector.
type InferenceConfig struct {
	// Provider is "openai" (API key required), "local" (an OpenAI-compatible
	// server such as Ollama), or "none".
	Provider           string   `toml:"provider"`
	Endpoint           string   `toml:"endpoint"`
	Model              string   `toml:"model"`
	APIKey             string   `toml:"api_key"`
	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	CacheTTL           duration `toml:"cache_ttl"`
	CacheSize          int      `toml:"cache_size"`
	MinConfidence      float64  `toml:"min_confidence"`
	MaxPairs           int      `toml:"max_pairs"`
	Timeout            duration `toml:"timeout"`
}

// RiskConfig holds the admission limits. Dollar amounts are notional.
type RiskConfig struct {
	MaxPositionSize  float64  `toml:"max_position_size"`
	MaxTotalExposure float64  `toml:"max_total_exposure"`
	MaxDailyLoss     float64  `toml:"max_daily_loss"`
	MinLiquidity     float64  `toml:"min_liquidity"`
	Cooldown         duration `toml:"cooldown"`
	MinNetProfitPct  float64  `toml:"min_net_profit_pct"`
}

// ExecutionConfig holds the paper executor's parameters.
type ExecutionConfig struct {
	Enabled          bool     `toml:"enabled"`
	StartingBankroll float64  `toml:"starting_bankroll"`
	ExecutionDelay   duration `toml:"execution_delay"`
	Leg1FailureRate  float64  `toml:"leg1_failure_rate"`
	Leg2FailureRate  float64  `toml:"leg2_failure_rate"`
	PartialFillRate  float64  `toml:"partial_fill_rate"`
	DedupTTL         duration `toml:"dedup_ttl"`
	// Seed fixes the simulation's random source. Zero seeds from the clock.
	Seed        uint64 `toml:"seed"`
	ArchiveCron string `toml:"archive_cron"`
}

// SlippageConfig holds the slippage model coefficients.
type SlippageConfig struct {
	BaseBps      float64 `toml:"base_bps"`
	ImpactFactor float64 `toml:"impact_factor"`
	Noise        float64 `toml:"noise"`
}

// FeedConfig selects where market snapshots come from.
type FeedConfig struct {
	Source     string   `toml:"source"`
	GammaHost  string   `toml:"gamma_host"`
	FilePath   string   `toml:"file_path"`
	PageSize   int      `toml:"page_size"`
	MaxMarkets int      `toml:"max_markets"`
	Timeout    duration `toml:"timeout"`
}

// ResolutionConfig controls the market-resolution poller.
type ResolutionConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimitPerMinute is per client IP and needs Redis. Zero disables it.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Detection: DetectionConfig{
			Interval:            duration{30 * time.Second},
			MinProfitPct:        0.5,
			MinConfidence:       0.5,
			MinLiquidity:        1_000,
			FeePct:              1.0,
			SimilarityThreshold: 0.5,
			TrackingTTL:         duration{5 * time.Minute},
			MultiOutcome:        DetectorToggle{Enabled: true},
			NegRisk:             DetectorToggle{Enabled: true},
			CrossMarket:         DetectorToggle{Enabled: true},
			RelatedMarket:       DetectorToggle{Enabled: true},
			Semantic:            DetectorToggle{Enabled: false},
		},
		Inference: InferenceConfig{
			Provider:           "none",
			Endpoint:           "https://api.openai.com/v1",
			Model:              "gpt-4o-mini",
			RateLimitPerMinute: 20,
			CacheTTL:           duration{24 * time.Hour},
			CacheSize:          1_000,
			MinConfidence:      0.7,
			MaxPairs:           50,
			Timeout:            duration{30 * time.Second},
		},
		Risk: RiskConfig{
			MaxPositionSize:  100,
			MaxTotalExposure: 1_000,
			MaxDailyLoss:     100,
			MinLiquidity:     5_000,
			Cooldown:         duration{30 * time.Second},
			MinNetProfitPct:  0.1,
		},
		Execution: ExecutionConfig{
			Enabled:          true,
			StartingBankroll: 1_000,
			ExecutionDelay:   duration{100 * time.Millisecond},
			Leg1FailureRate:  0.05,
			Leg2FailureRate:  0.05,
			PartialFillRate:  0.15,
			DedupTTL:         duration{5 * time.Minute},
			ArchiveCron:      "0 * * * *",
		},
		Slippage: SlippageConfig{
			BaseBps:      2.0,
			ImpactFactor: 0.1,
			Noise:        0.2,
		},
		Feed: FeedConfig{
			Source:     "gamma",
			GammaHost:  "https://gamma-api.polymarket.com",
			PageSize:   500,
			MaxMarkets: 5_000,
			Timeout:    duration{15 * time.Second},
		},
		Resolution: ResolutionConfig{
			Enabled:  true,
			Interval: duration{10 * time.Minute},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "polyarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "polyarb:",
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "polyarb-reports",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:            true,
			Port:               8000,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMinute: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "emergency_stop", "detector_failed"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":  true,
	"paper": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validSources = map[string]bool{
	"gamma": true,
	"file":  true,
}

var validProviders = map[string]bool{
	"openai": true,
	"local":  true,
	"none":   true,
}

// Paper reports whether the process runs simulated execution.
func (c *Config) Paper() bool {
	return strings.EqualFold(c.Mode, "paper") && c.Execution.Enabled
}

// SemanticEnabled reports whether the semantic detector has a usable
// provider.
func (c *Config) SemanticEnabled() bool {
	return c.Detection.Semantic.Enabled && !strings.EqualFold(c.Inference.Provider, "none")
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !validModes[strings.ToLower(c.Mode)] {
		add("unknown mode %q (valid: scan, paper)", c.Mode)
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}

	// Detection
	d := c.Detection
	if d.Interval.Duration <= 0 {
		add("detection: interval must be > 0")
	}
	if d.MinProfitPct < 0 {
		add("detection: min_profit_pct must be >= 0")
	}
	if d.MinConfidence < 0 || d.MinConfidence > 1 {
		add("detection: min_confidence must be in [0, 1], got %v", d.MinConfidence)
	}
	if d.SimilarityThreshold <= 0 || d.SimilarityThreshold > 1 {
		add("detection: similarity_threshold must be in (0, 1], got %v", d.SimilarityThreshold)
	}
	if d.FeePct < 0 {
		add("detection: fee_pct must be >= 0")
	}

	// Inference
	provider := strings.ToLower(c.Inference.Provider)
	if !validProviders[provider] {
		add("inference: unknown provider %q (valid: openai, local, none)", c.Inference.Provider)
	}
	if c.SemanticEnabled() {
		if provider == "openai" && c.Inference.APIKey == "" {
			add("inference: api_key is required for provider openai when semantic detection is enabled")
		}
		if c.Inference.Endpoint == "" {
			add("inference: endpoint must not be empty")
		}
		if c.Inference.Model == "" {
			add("inference: model must not be empty")
		}
		if c.Inference.RateLimitPerMinute < 0 {
			add("inference: rate_limit_per_minute must be >= 0")
		}
		if c.Inference.MinConfidence < 0 || c.Inference.MinConfidence > 1 {
			add("inference: min_confidence must be in [0, 1]")
		}
	}

	// Risk
	if c.Risk.MaxPositionSize <= 0 {
		add("risk: max_position_size must be > 0")
	}
	if c.Risk.MaxTotalExposure < c.Risk.MaxPositionSize {
		add("risk: max_total_exposure must be >= max_position_size")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		add("risk: max_daily_loss must be > 0")
	}
	if c.Risk.Cooldown.Duration < 0 {
		add("risk: cooldown must be >= 0")
	}

	// Execution
	if c.Paper() {
		e := c.Execution
		if e.StartingBankroll <= 0 {
			add("execution: starting_bankroll must be > 0")
		}
		rates := []struct {
			name string
			p    float64
		}{
			{"leg1_failure_rate", e.Leg1FailureRate},
			{"leg2_failure_rate", e.Leg2FailureRate},
			{"partial_fill_rate", e.PartialFillRate},
		}
		for _, r := range rates {
			if r.p < 0 || r.p > 1 {
				add("execution: %s must be in [0, 1], got %v", r.name, r.p)
			}
		}
	}

	// Slippage
	if c.Slippage.BaseBps < 0 || c.Slippage.ImpactFactor < 0 {
		add("slippage: base_bps and impact_factor must be >= 0")
	}
	if c.Slippage.Noise < 0 || c.Slippage.Noise >= 1 {
		add("slippage: noise must be in [0, 1)")
	}

	// Feed
	switch source := strings.ToLower(c.Feed.Source); {
	case !validSources[source]:
		add("feed: unknown source %q (valid: gamma, file)", c.Feed.Source)
	case source == "file" && c.Feed.FilePath == "":
		add("feed: file_path is required for source file")
	case source == "gamma" && c.Feed.GammaHost == "":
		add("feed: gamma_host must not be empty")
	}
	if c.Feed.PageSize < 1 {
		add("feed: page_size must be >= 1")
	}

	if c.Resolution.Enabled && c.Resolution.Interval.Duration <= 0 {
		add("resolution: interval must be > 0")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				add("postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
			}
			if c.Postgres.Database == "" {
				add("postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			add("postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			add("postgres: pool_min_conns must be in [0, pool_max_conns]")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			add("redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty")
		}
		if c.Execution.ArchiveCron == "" {
			add("execution: archive_cron must be set when s3 is enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server: port must be 1-65535, got %d", c.Server.Port)
		}
		if c.Server.RateLimitPerMinute < 0 {
			add("server: rate_limit_per_minute must be >= 0")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
