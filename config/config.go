// Package config provides configuration management for the civicwatch CLI.
// It supports loading configuration from YAML files with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultCivicWebBaseURL = "https://urbandale.civicweb.net"
	DefaultFetchTimeout    = 30 * time.Second

	DefaultMaxRangeDays    = 180
	DefaultCooldownSeconds = 10
	DefaultChunkDays       = 31
	DefaultCrawlLimit      = 50
)

// CivicWebConfig holds settings for the external meeting-data service.
type CivicWebConfig struct {
	// BaseURL is the root of the CivicWeb instance to crawl.
	BaseURL string `yaml:"base_url"`

	// TimeoutSeconds bounds every upstream HTTP call. The crawl coordinator
	// imposes no per-meeting timeout of its own, so this is the only guard
	// against a hung collaborator.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the configured fetch timeout as a duration.
func (c CivicWebConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultFetchTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CrawlConfig holds admission-control settings for crawl jobs.
type CrawlConfig struct {
	// MaxRangeDays is the widest date span a single job may cover.
	MaxRangeDays int `yaml:"max_range_days"`

	// CooldownSeconds is the wait required after a job submission before
	// the next one is accepted.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// ChunkDays bounds the width of a single upstream list request.
	ChunkDays int `yaml:"chunk_days"`

	// Limit caps the number of meetings processed per job.
	Limit int `yaml:"limit"`
}

// RedisConfig holds optional event-publishing settings.
type RedisConfig struct {
	// Addr is host:port of the Redis instance. Empty disables publishing.
	Addr string `yaml:"addr"`

	// Password is the optional Redis auth password.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Config is the root civicwatch configuration.
type Config struct {
	CivicWeb CivicWebConfig `yaml:"civicweb"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		CivicWeb: CivicWebConfig{
			BaseURL:        DefaultCivicWebBaseURL,
			TimeoutSeconds: int(DefaultFetchTimeout.Seconds()),
		},
		Crawl: CrawlConfig{
			MaxRangeDays:    DefaultMaxRangeDays,
			CooldownSeconds: DefaultCooldownSeconds,
			ChunkDays:       DefaultChunkDays,
			Limit:           DefaultCrawlLimit,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from the given YAML file, falling back to
// defaults when the path is empty or the file does not exist, then applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config values from CIVICWATCH_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("CIVICWATCH_BASE_URL"); v != "" {
		c.CivicWeb.BaseURL = v
	}
	if v := os.Getenv("CIVICWATCH_FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CivicWeb.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("CIVICWATCH_MAX_RANGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Crawl.MaxRangeDays = n
		}
	}
	if v := os.Getenv("CIVICWATCH_COOLDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Crawl.CooldownSeconds = n
		}
	}
	if v := os.Getenv("CIVICWATCH_CHUNK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Crawl.ChunkDays = n
		}
	}
	if v := os.Getenv("CIVICWATCH_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CIVICWATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.CivicWeb.BaseURL == "" {
		return fmt.Errorf("civicweb base_url is required")
	}
	if c.Crawl.MaxRangeDays <= 0 {
		return fmt.Errorf("crawl max_range_days must be positive, got %d", c.Crawl.MaxRangeDays)
	}
	if c.Crawl.ChunkDays <= 0 {
		return fmt.Errorf("crawl chunk_days must be positive, got %d", c.Crawl.ChunkDays)
	}
	if c.Crawl.CooldownSeconds < 0 {
		return fmt.Errorf("crawl cooldown_seconds must not be negative, got %d", c.Crawl.CooldownSeconds)
	}
	return nil
}
