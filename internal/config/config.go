// Package config loads pipeline configuration from a YAML file (default:
// configs/config.yaml) with overrides from SENTRY_* environment variables,
// mirroring the ecosystem's viper-with-env-override convention.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML structure.
type Config struct {
	Poller      PollerConfig      `mapstructure:"poller"`
	Grader      GraderConfig      `mapstructure:"grader"`
	ClosingLine ClosingLineConfig `mapstructure:"closing_line"`
	Alert       AlertConfig       `mapstructure:"alert"`
	Confidence  ConfidenceConfig  `mapstructure:"confidence"`
	Cache       CacheConfig       `mapstructure:"cache"`
	History     HistoryConfig     `mapstructure:"history"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	HTTP        HTTPConfig        `mapstructure:"http"`
}

// PollerConfig tunes the main line-polling loop (C9).
//
//   - Interval: how often to pull current odds for active events.
//   - PlayerPropEveryNTicks: player-prop markets are heavier to fetch, so
//     they're only polled on every Nth tick.
//   - MaxConcurrentEvents: worker pool size bound for per-event fetches.
//   - TickDeadline: a tick that runs past this long is abandoned; partial
//     results from that tick are still kept.
type PollerConfig struct {
	Interval              time.Duration `mapstructure:"interval"`
	PlayerPropEveryNTicks int           `mapstructure:"player_prop_every_n_ticks"`
	MaxConcurrentEvents   int           `mapstructure:"max_concurrent_events"`
	TickDeadline          time.Duration `mapstructure:"tick_deadline"`
}

// GraderConfig tunes the outcome-grading tick (C10).
type GraderConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ClosingLineConfig controls when the poller snapshots the closing line for
// an event ahead of kickoff.
type ClosingLineConfig struct {
	CaptureWindow time.Duration `mapstructure:"capture_window"`
}

// AlertConfig tunes the alert engine (C7): cooldowns, classification
// thresholds, and the dispatch transports.
type AlertConfig struct {
	Cooldown        time.Duration `mapstructure:"cooldown"`
	SharpCooldown   time.Duration `mapstructure:"sharp_cooldown"`
	SlackWebhookURL string        `mapstructure:"slack_webhook_url"`
	WebSocketAddr   string        `mapstructure:"websocket_addr"`

	MinConsensusBooks int           `mapstructure:"min_consensus_books"`
	ReversalWindow    time.Duration `mapstructure:"reversal_window"`
	DedupeWindow      time.Duration `mapstructure:"dedupe_window"`
	MinSharpDelta     float64       `mapstructure:"min_sharp_delta"`
	MinMovementDelta  float64       `mapstructure:"min_movement_delta"`
}

// ConfidenceConfig holds the tunable thresholds for the scorer (C6). The six
// Velocity/Confirmation/Stability high/medium fields are the per-component
// curve breakpoints spec.md §6 names; High/MediumThreshold are the overall
// 0-100 total cutoffs that set ConfidenceScore.Level.
type ConfidenceConfig struct {
	VelocityHighThreshold       float64 `mapstructure:"high_velocity_threshold"`
	VelocityMediumThreshold     float64 `mapstructure:"medium_velocity_threshold"`
	ConfirmationHighThreshold   int     `mapstructure:"high_confirmation_threshold"`
	ConfirmationMediumThreshold int     `mapstructure:"medium_confirmation_threshold"`
	StabilityHighThreshold      float64 `mapstructure:"high_stability_threshold"`
	StabilityMediumThreshold    float64 `mapstructure:"medium_stability_threshold"`

	HighThreshold   int `mapstructure:"high_threshold"`
	MediumThreshold int `mapstructure:"medium_threshold"`
}

// CacheConfig points at the Redis instance backing C2.
type CacheConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HistoryConfig points at the Postgres instance backing C8.
type HistoryConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
}

// ProviderConfig configures the upstream odds API client (C3).
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryCount     int           `mapstructure:"retry_count"`
	SampleSpacing  time.Duration `mapstructure:"sample_spacing"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPConfig controls the diagnostics server shared by both binaries.
type HTTPConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: SENTRY_PROVIDER_API_KEY, SENTRY_HISTORY_DSN,
// SENTRY_CACHE_PASSWORD, SENTRY_ALERT_SLACK_WEBHOOK_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := v.GetString("provider.api_key"); key != "" {
		cfg.Provider.APIKey = key
	}
	if dsn := v.GetString("history.dsn"); dsn != "" {
		cfg.History.DSN = dsn
	}
	if pass := v.GetString("cache.password"); pass != "" {
		cfg.Cache.Password = pass
	}
	if url := v.GetString("alert.slack_webhook_url"); url != "" {
		cfg.Alert.SlackWebhookURL = url
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("poller.interval", 60*time.Second)
	v.SetDefault("poller.player_prop_every_n_ticks", 5)
	v.SetDefault("poller.max_concurrent_events", 8)
	v.SetDefault("poller.tick_deadline", 45*time.Second)

	v.SetDefault("grader.interval", 15*time.Minute)

	v.SetDefault("closing_line.capture_window", 5*time.Minute)

	v.SetDefault("alert.cooldown", 15*time.Minute)
	v.SetDefault("alert.sharp_cooldown", 2*time.Minute)
	v.SetDefault("alert.min_consensus_books", 5)
	v.SetDefault("alert.reversal_window", 5*time.Minute)
	v.SetDefault("alert.dedupe_window", 60*time.Minute)
	v.SetDefault("alert.min_sharp_delta", 0.5)
	v.SetDefault("alert.min_movement_delta", 1.0)

	v.SetDefault("confidence.high_velocity_threshold", 2.0)
	v.SetDefault("confidence.medium_velocity_threshold", 0.5)
	v.SetDefault("confidence.high_confirmation_threshold", 5)
	v.SetDefault("confidence.medium_confirmation_threshold", 3)
	v.SetDefault("confidence.high_stability_threshold", 60.0)
	v.SetDefault("confidence.medium_stability_threshold", 15.0)
	v.SetDefault("confidence.high_threshold", 80)
	v.SetDefault("confidence.medium_threshold", 50)

	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)

	v.SetDefault("history.max_open_conns", 10)
	v.SetDefault("history.max_idle_conns", 5)

	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.retry_count", 2)
	v.SetDefault("provider.sample_spacing", 150*time.Millisecond)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 8090)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.History.DSN == "" {
		return fmt.Errorf("history.dsn is required (set SENTRY_HISTORY_DSN)")
	}
	if c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required")
	}
	if c.Poller.MaxConcurrentEvents <= 0 {
		return fmt.Errorf("poller.max_concurrent_events must be > 0")
	}
	if c.Confidence.HighThreshold <= c.Confidence.MediumThreshold {
		return fmt.Errorf("confidence.high_threshold must be > confidence.medium_threshold")
	}
	return nil
}
