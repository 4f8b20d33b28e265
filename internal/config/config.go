package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the monitoring service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Seed    SeedConfig    `yaml:"seed"`
	Refresh RefreshConfig `yaml:"refresh"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
}

// AuthConfig controls bearer-token issuance and verification.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"tokenTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of dashboard aggregates.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	StatsTTL     time.Duration `yaml:"statsTTL"`
	SummaryTTL   time.Duration `yaml:"summaryTTL"`
}

// IngestConfig controls the MQTT sensor-reading subscriber.
type IngestConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"clientID"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	ReadingTopic string `yaml:"readingTopic"`
}

// SeedConfig controls demo data loading for local environments.
type SeedConfig struct {
	Demo bool `yaml:"demo"`
}

// RefreshConfig controls the background dashboard refresh loop.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ROCKWATCH_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret is required (set ROCKWATCH_AUTH_SECRET)")
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 30 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			StatsTTL:     30 * time.Second,
			SummaryTTL:   time.Minute,
		},
		Ingest: IngestConfig{
			ClientID:     "rockwatch-ingest",
			ReadingTopic: "rockwatch/+/reading",
		},
		Seed:    SeedConfig{Demo: true},
		Refresh: RefreshConfig{Interval: 30 * time.Second},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROCKWATCH_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("ROCKWATCH_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("ROCKWATCH_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("ROCKWATCH_AUTH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = d
		}
	}
	if v := os.Getenv("ROCKWATCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ROCKWATCH_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("ROCKWATCH_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = isTruthy(v)
	}
	if v := os.Getenv("ROCKWATCH_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("ROCKWATCH_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("ROCKWATCH_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("ROCKWATCH_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("ROCKWATCH_CACHE_TLS"); isTruthy(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("ROCKWATCH_CACHE_STATS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.StatsTTL = d
		}
	}
	if v := os.Getenv("ROCKWATCH_CACHE_SUMMARY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.SummaryTTL = d
		}
	}
	if v := os.Getenv("ROCKWATCH_INGEST_ENABLED"); v != "" {
		cfg.Ingest.Enabled = isTruthy(v)
	}
	if v := os.Getenv("ROCKWATCH_INGEST_BROKER"); v != "" {
		cfg.Ingest.Broker = v
	}
	if v := os.Getenv("ROCKWATCH_INGEST_CLIENT_ID"); v != "" {
		cfg.Ingest.ClientID = v
	}
	if v := os.Getenv("ROCKWATCH_INGEST_USERNAME"); v != "" {
		cfg.Ingest.Username = v
	}
	if v := os.Getenv("ROCKWATCH_INGEST_PASSWORD"); v != "" {
		cfg.Ingest.Password = v
	}
	if v := os.Getenv("ROCKWATCH_INGEST_READING_TOPIC"); v != "" {
		cfg.Ingest.ReadingTopic = v
	}
	if v := os.Getenv("ROCKWATCH_SEED_DEMO"); v != "" {
		cfg.Seed.Demo = isTruthy(v)
	}
	if v := os.Getenv("ROCKWATCH_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Refresh.Interval = d
		}
	}
}

func isTruthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
