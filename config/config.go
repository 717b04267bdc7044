// Package config loads the service configuration from defaults, an
// optional YAML file, and SHAKEMAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shakemap/shakemapd/quake"
	"github.com/shakemap/shakemapd/secret"
)

// Config stores all configuration of the service.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Feed    FeedConfig    `mapstructure:"feed"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Observe ObserveConfig `mapstructure:"observe"`
}

// ServerConfig stores the HTTP listener settings.
type ServerConfig struct {
	Addr            string   `mapstructure:"addr"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RefreshRate     float64  `mapstructure:"refresh_rate"`     // Refreshes per second
	RefreshBurst    int      `mapstructure:"refresh_burst"`    // Burst capacity
	ShutdownSeconds int      `mapstructure:"shutdown_seconds"` // Graceful shutdown budget
}

// CacheConfig stores the overlay cache settings.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"` // 0 disables expiry
}

// TTL returns the cache TTL as a duration. Zero means no expiry.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// FeedConfig stores the upstream earthquake feed settings.
type FeedConfig struct {
	URL            string  `mapstructure:"url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MinMagnitude   float64 `mapstructure:"min_magnitude"`
	MinLat         float64 `mapstructure:"min_lat"`
	MaxLat         float64 `mapstructure:"max_lat"`
	MinLon         float64 `mapstructure:"min_lon"`
	MaxLon         float64 `mapstructure:"max_lon"`
}

// Timeout returns the feed request timeout as a duration.
func (c FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Region returns the configured bounding box.
func (c FeedConfig) Region() quake.Region {
	return quake.Region{
		MinLat: c.MinLat,
		MaxLat: c.MaxLat,
		MinLon: c.MinLon,
		MaxLon: c.MaxLon,
	}
}

// AuthConfig stores the operator guard settings.
type AuthConfig struct {
	// OperatorSecret may reference the environment as "${VAR}".
	// Empty disables the guard.
	OperatorSecret string `mapstructure:"operator_secret"`
	Issuer         string `mapstructure:"issuer"`
}

// ObserveConfig stores the telemetry settings.
type ObserveConfig struct {
	ServiceName     string  `mapstructure:"service_name"`
	LoggingEnabled  bool    `mapstructure:"logging_enabled"`
	LogLevel        string  `mapstructure:"log_level"`
	TracingEnabled  bool    `mapstructure:"tracing_enabled"`
	TracingExporter string  `mapstructure:"tracing_exporter"`
	SamplePct       float64 `mapstructure:"sample_pct"`
	MetricsEnabled  bool    `mapstructure:"metrics_enabled"`
	MetricsExporter string  `mapstructure:"metrics_exporter"`
}

// Load reads configuration from the given file path (optional) and the
// environment. Secret references in auth values are expanded strictly.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/shakemapd")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Set default values
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{
		"https://eqshakemap.pages.dev",
		"https://map.shakemap.org",
		"https://shakemap.org",
	})
	v.SetDefault("server.refresh_rate", 1.0)
	v.SetDefault("server.refresh_burst", 3)
	v.SetDefault("server.shutdown_seconds", 10)

	v.SetDefault("cache.ttl_seconds", 0)

	v.SetDefault("feed.url", quake.DefaultFeedURL)
	v.SetDefault("feed.timeout_seconds", 15)
	v.SetDefault("feed.min_magnitude", 0.0)
	v.SetDefault("feed.min_lat", quake.Thailand.MinLat)
	v.SetDefault("feed.max_lat", quake.Thailand.MaxLat)
	v.SetDefault("feed.min_lon", quake.Thailand.MinLon)
	v.SetDefault("feed.max_lon", quake.Thailand.MaxLon)

	v.SetDefault("auth.operator_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("observe.service_name", "shakemapd")
	v.SetDefault("observe.logging_enabled", true)
	v.SetDefault("observe.log_level", "info")
	v.SetDefault("observe.tracing_enabled", false)
	v.SetDefault("observe.tracing_exporter", "none")
	v.SetDefault("observe.sample_pct", 1.0)
	v.SetDefault("observe.metrics_enabled", false)
	v.SetDefault("observe.metrics_exporter", "none")

	v.SetEnvPrefix("SHAKEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine when none was asked for; defaults
		// and the environment carry the load.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	expanded, err := secret.ExpandEnvStrict(cfg.Auth.OperatorSecret)
	if err != nil {
		return nil, fmt.Errorf("config: auth.operator_secret: %w", err)
	}
	cfg.Auth.OperatorSecret = expanded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the loaded configuration for startup-blocking mistakes.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr must not be empty")
	}
	if c.Cache.TTLSeconds < 0 {
		return errors.New("config: cache.ttl_seconds must not be negative")
	}
	if c.Feed.URL == "" {
		return errors.New("config: feed.url must not be empty")
	}
	if c.Feed.TimeoutSeconds <= 0 {
		return errors.New("config: feed.timeout_seconds must be positive")
	}
	if c.Feed.MinLat >= c.Feed.MaxLat {
		return errors.New("config: feed bounding box latitude range is empty")
	}
	if c.Feed.MinLon >= c.Feed.MaxLon {
		return errors.New("config: feed bounding box longitude range is empty")
	}
	if c.Server.RefreshRate <= 0 {
		return errors.New("config: server.refresh_rate must be positive")
	}
	if c.Server.RefreshBurst <= 0 {
		return errors.New("config: server.refresh_burst must be positive")
	}
	return nil
}
