// Package config loads the process configuration from file and environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the market data service
type Config struct {
	Cache         CacheConfig         `mapstructure:"cache"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Sources       SourcesConfig       `mapstructure:"sources"`
	Router        RouterConfig        `mapstructure:"router"`
	HTTPClient    HTTPClientConfig    `mapstructure:"http_client"`
	Fetcher       FetcherConfig       `mapstructure:"fetcher"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// FetcherConfig drives the background fetch daemon: which symbols to keep
// warm and on what schedule.
type FetcherConfig struct {
	Symbols          []string `mapstructure:"symbols"`
	Workers          int      `mapstructure:"workers"`
	QuoteRefreshCron string   `mapstructure:"quote_refresh_cron"`
	StatsSummaryCron string   `mapstructure:"stats_summary_cron"`
}

// CacheConfig holds the cache class table and backend selection
type CacheConfig struct {
	Classes  []CacheClassConfig `mapstructure:"classes"`
	UseRedis bool               `mapstructure:"use_redis"`
}

// CacheClassConfig configures one named cache class
type CacheClassConfig struct {
	Name       string        `mapstructure:"name"`
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SourcesConfig holds the per-domain source priority lists. Order is trial
// order.
type SourcesConfig struct {
	Historical []string `mapstructure:"historical"`
	Realtime   []string `mapstructure:"realtime"`
	Financial  []string `mapstructure:"financial"`
}

// RouterConfig holds failover router settings
type RouterConfig struct {
	MinRows          int `mapstructure:"min_rows"`
	ErrorTruncateLen int `mapstructure:"error_truncate_len"`
}

// HTTPClientConfig holds the shared provider HTTP client settings
type HTTPClientConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not fatal if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Cache class defaults: realtime 1m, hourly 1h, daily 24h, weekly 7d
	v.SetDefault("cache.use_redis", false)
	v.SetDefault("cache.classes", []map[string]any{
		{"name": "realtime", "max_entries": 500, "ttl": "60s"},
		{"name": "hourly", "max_entries": 1000, "ttl": "1h"},
		{"name": "daily", "max_entries": 2000, "ttl": "24h"},
		{"name": "weekly", "max_entries": 100, "ttl": "168h"},
	})

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "marketone:")

	// Source priority defaults
	v.SetDefault("sources.historical", []string{"eastmoney", "sina", "tencent", "netease"})
	v.SetDefault("sources.realtime", []string{"eastmoney", "xueqiu"})
	v.SetDefault("sources.financial", []string{"eastmoney", "sina", "cninfo"})

	// Router defaults
	v.SetDefault("router.min_rows", 1)
	v.SetDefault("router.error_truncate_len", 100)

	// HTTP client defaults
	v.SetDefault("http_client.timeout", "10s")
	v.SetDefault("http_client.requests_per_minute", 120)
	v.SetDefault("http_client.burst", 10)
	v.SetDefault("http_client.max_retries", 3)

	// Fetcher defaults
	v.SetDefault("fetcher.symbols", []string{})
	v.SetDefault("fetcher.workers", 4)
	v.SetDefault("fetcher.quote_refresh_cron", "@every 1m")
	v.SetDefault("fetcher.stats_summary_cron", "@every 24h")

	// Observability defaults
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.port", 9091)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Cache.Classes) == 0 {
		return fmt.Errorf("at least one cache class is required")
	}
	seen := make(map[string]bool, len(c.Cache.Classes))
	for _, cls := range c.Cache.Classes {
		if cls.Name == "" {
			return fmt.Errorf("cache class name must not be empty")
		}
		if seen[cls.Name] {
			return fmt.Errorf("duplicate cache class: %s", cls.Name)
		}
		seen[cls.Name] = true
		if cls.TTL <= 0 {
			return fmt.Errorf("cache class %s: ttl must be positive", cls.Name)
		}
		if cls.MaxEntries <= 0 {
			return fmt.Errorf("cache class %s: max_entries must be positive", cls.Name)
		}
	}

	if c.Cache.UseRedis && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when cache.use_redis is set")
	}

	if c.Router.MinRows < 0 {
		return fmt.Errorf("router min_rows must be >= 0")
	}
	if c.Router.ErrorTruncateLen <= 0 {
		return fmt.Errorf("router error_truncate_len must be positive")
	}

	if c.Fetcher.Workers <= 0 {
		return fmt.Errorf("fetcher workers must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Observability.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Observability.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Observability.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Observability.Logging.Format)
	}

	return nil
}
