package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Server struct {
	Port              string `mapstructure:"port" env:"PORT"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec" env:"REQUEST_TIMEOUT_SEC"`
	// CacheMaxAgeSec is the freshness hint sent to edge caches; 0 disables it.
	CacheMaxAgeSec int `mapstructure:"cache_max_age_sec" env:"CACHE_MAX_AGE_SEC"`
}

type AlphaVantage struct {
	APIKey     string `mapstructure:"api_key" env:"API_KEY"`
	BaseURL    string `mapstructure:"base_url" env:"ALPHAVANTAGE_BASE_URL"`
	TimeoutSec int    `mapstructure:"timeout_sec" env:"ALPHAVANTAGE_TIMEOUT_SEC"`
	// NewsFeedURL switches news to a feed returning {"items": [...]}.
	NewsFeedURL           string `mapstructure:"news_feed_url" env:"NEWS_FEED_URL"`
	NewsTopics            string `mapstructure:"news_topics" env:"NEWS_TOPICS"`
	MaxRequestsPerMinute  int    `mapstructure:"max_requests_per_minute" env:"ALPHAVANTAGE_MAX_RPM"`
	Burst                 int    `mapstructure:"burst" env:"ALPHAVANTAGE_BURST"`
	MinRequestIntervalSec int    `mapstructure:"min_request_interval_sec" env:"ALPHAVANTAGE_MIN_INTERVAL_SEC"`
}

type Enrichment struct {
	Enabled        bool `mapstructure:"enabled" env:"ENRICHMENT_ENABLED"`
	TimeoutSec     int  `mapstructure:"timeout_sec" env:"ENRICHMENT_TIMEOUT_SEC"`
	MaxConcurrency int  `mapstructure:"max_concurrency" env:"ENRICHMENT_MAX_CONCURRENCY"`
	// BudgetSec caps a whole enrichment pass; records left over keep defaults.
	BudgetSec int `mapstructure:"budget_sec" env:"ENRICHMENT_BUDGET_SEC"`
}

type Config struct {
	LogLevel     string       `mapstructure:"log_level" env:"LOG_LEVEL"`
	Server       Server       `mapstructure:"server"`
	AlphaVantage AlphaVantage `mapstructure:"alphavantage"`
	Enrichment   Enrichment   `mapstructure:"enrichment"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server:   Server{Port: "8080", RequestTimeoutSec: 15, CacheMaxAgeSec: 300},
		AlphaVantage: AlphaVantage{
			BaseURL:    "https://www.alphavantage.co",
			TimeoutSec: 10,
			NewsTopics: "financial_markets",
			Burst:      1,
		},
		Enrichment: Enrichment{
			Enabled:        false,
			TimeoutSec:     5,
			MaxConcurrency: 8,
			BudgetSec:      8,
		},
	}
}

// Duration helpers; the config keeps whole seconds like the env vars do.
func (s Server) RequestTimeout() time.Duration { return time.Duration(s.RequestTimeoutSec) * time.Second }

func (a AlphaVantage) Timeout() time.Duration { return time.Duration(a.TimeoutSec) * time.Second }

func (a AlphaVantage) MinInterval() time.Duration {
	return time.Duration(a.MinRequestIntervalSec) * time.Second
}

func (e Enrichment) Timeout() time.Duration { return time.Duration(e.TimeoutSec) * time.Second }

func (e Enrichment) Budget() time.Duration { return time.Duration(e.BudgetSec) * time.Second }

var defaultFiles = []string{"config.json", "config.yaml", "config.yml"}

// Load layers configuration: defaults, then the file at path (or the first of
// config.json / config.yaml found in the working directory), then a .env file,
// then the process environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, f := range defaultFiles {
			if _, err := os.Stat(f); err == nil {
				path = f
				break
			}
		}
	}
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	sanitize(&cfg)
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// sanitize replaces unusable values with defaults.
func sanitize(cfg *Config) {
	d := Default()
	if cfg.Server.Port == "" {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Server.RequestTimeoutSec <= 0 {
		cfg.Server.RequestTimeoutSec = d.Server.RequestTimeoutSec
	}
	if cfg.Server.CacheMaxAgeSec < 0 {
		cfg.Server.CacheMaxAgeSec = 0
	}
	if cfg.AlphaVantage.BaseURL == "" {
		cfg.AlphaVantage.BaseURL = d.AlphaVantage.BaseURL
	}
	if cfg.AlphaVantage.TimeoutSec <= 0 {
		cfg.AlphaVantage.TimeoutSec = d.AlphaVantage.TimeoutSec
	}
	if cfg.AlphaVantage.Burst <= 0 {
		cfg.AlphaVantage.Burst = 1
	}
	if cfg.Enrichment.TimeoutSec <= 0 {
		cfg.Enrichment.TimeoutSec = d.Enrichment.TimeoutSec
	}
	if cfg.Enrichment.BudgetSec <= 0 {
		cfg.Enrichment.BudgetSec = d.Enrichment.BudgetSec
	}
	if cfg.Enrichment.MaxConcurrency < 0 {
		cfg.Enrichment.MaxConcurrency = 0
	}
}
