// Package config loads application configuration from file and environment.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Browser   BrowserConfig   `yaml:"browser" mapstructure:"browser"`
	Crawl     CrawlConfig     `yaml:"crawl" mapstructure:"crawl"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RegistryConfig holds the politician registry API settings.
type RegistryConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// AnthropicConfig holds Anthropic API settings for the extraction fallback.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BrowserConfig configures the headless browser session.
type BrowserConfig struct {
	RemoteURL       string `yaml:"remote_url" mapstructure:"remote_url"`
	Headless        bool   `yaml:"headless" mapstructure:"headless"`
	NavTimeoutSecs  int    `yaml:"nav_timeout_secs" mapstructure:"nav_timeout_secs"`
	WaitTimeoutSecs int    `yaml:"wait_timeout_secs" mapstructure:"wait_timeout_secs"`
}

// CrawlConfig configures the show crawler engine.
type CrawlConfig struct {
	PaginationCap    int `yaml:"pagination_cap" mapstructure:"pagination_cap"`
	EpisodeBatchSize int `yaml:"episode_batch_size" mapstructure:"episode_batch_size"`
	FullModeMaxMins  int `yaml:"full_mode_max_mins" mapstructure:"full_mode_max_mins"`
}

// ResolveConfig configures entity resolution and its throttle.
type ResolveConfig struct {
	OverridesPath  string  `yaml:"overrides_path" mapstructure:"overrides_path"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	RequestBurst   int     `yaml:"request_burst" mapstructure:"request_burst"`
}

// ScheduleConfig maps show names to cron expressions for recurring runs.
type ScheduleConfig struct {
	Default string            `yaml:"default" mapstructure:"default"`
	Shows   map[string]string `yaml:"shows" mapstructure:"shows"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// NavTimeout returns the navigation timeout as a duration.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSecs) * time.Second
}

// WaitTimeout returns the selector-wait timeout as a duration.
func (c BrowserConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSecs) * time.Second
}

// FullModeDeadline returns the wall-clock bound for full-archive crawls.
func (c CrawlConfig) FullModeDeadline() time.Duration {
	return time.Duration(c.FullModeMaxMins) * time.Minute
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TALKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("registry.base_url", "https://www.abgeordnetenwatch.de/api/v2")
	v.SetDefault("registry.timeout_secs", 15)
	v.SetDefault("registry.max_retries", 3)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.nav_timeout_secs", 30)
	v.SetDefault("browser.wait_timeout_secs", 10)
	v.SetDefault("crawl.pagination_cap", 40)
	v.SetDefault("crawl.episode_batch_size", 4)
	v.SetDefault("crawl.full_mode_max_mins", 30)
	v.SetDefault("resolve.requests_per_sec", 0.66)
	v.SetDefault("resolve.request_burst", 1)
	v.SetDefault("schedule.default", "0 6 * * 1")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
