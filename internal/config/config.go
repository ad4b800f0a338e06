// Package config loads runtime settings from config.yaml and the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	Overpass OverpassConfig `mapstructure:"overpass"`
	Enrich   EnrichConfig   `mapstructure:"enrich"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	RateLimitSearch string `mapstructure:"rate_limit_search"`
}

// SearchRateLimit parses RateLimitSearch.
func (s ServerConfig) SearchRateLimit() (RateLimitConfig, error) {
	return parseRateLimit(s.RateLimitSearch)
}

// StoreConfig selects the enrichment cache backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	DatabaseURL string `mapstructure:"database_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	RedisAddr   string `mapstructure:"redis_addr"`
}

// GeocodeConfig configures the Nominatim client and its cache.
type GeocodeConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	UserAgent     string        `mapstructure:"user_agent"`
	Email         string        `mapstructure:"email"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Interval      time.Duration `mapstructure:"interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheMaxItems int           `mapstructure:"cache_max_items"`
}

// OverpassConfig configures the endpoint pool and the search area limits.
type OverpassConfig struct {
	Endpoints           []string      `mapstructure:"endpoints"`
	Budget              time.Duration `mapstructure:"budget"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	AttemptsPerEndpoint int           `mapstructure:"attempts_per_endpoint"`
	QueryTimeoutSec     int           `mapstructure:"query_timeout_sec"`
	MaxRadiusKm         float64       `mapstructure:"max_radius_km"`
	DefaultRadiusKm     float64       `mapstructure:"default_radius_km"`
	StrictTags          bool          `mapstructure:"strict_tags"`
}

// EnrichConfig configures website crawling and cache freshness.
type EnrichConfig struct {
	MaxPages  int           `mapstructure:"max_pages"`
	Delay     time.Duration `mapstructure:"delay"`
	Timeout   time.Duration `mapstructure:"timeout"`
	FullTTL   time.Duration `mapstructure:"full_ttl"`
	EmptyTTL  time.Duration `mapstructure:"empty_ttl"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps keys to the unprefixed variable names older deployments use.
var legacyEnv = map[string]string{
	"store.database_url":       "DATABASE_URL",
	"server.port":              "PORT",
	"server.rate_limit_search": "RATE_LIMIT_SEARCH",
	"store.redis_addr":         "REDIS_ADDR",
}

// Load reads configuration from an optional config.yaml and the environment.
// Variables use the PROSPECTOR_ prefix, e.g. PROSPECTOR_STORE_DRIVER.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROSPECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "PROSPECTOR_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind %s", key)
		}
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.rate_limit_search", "30/min")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "prospector.db")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "prospector/1.0 (+https://github.com/octobees/prospector)")
	v.SetDefault("geocode.email", "")
	v.SetDefault("geocode.timeout", "20s")
	v.SetDefault("geocode.interval", "1s")
	v.SetDefault("geocode.max_retries", 2)
	v.SetDefault("geocode.cache_ttl", "24h")
	v.SetDefault("geocode.cache_max_items", 5000)
	v.SetDefault("overpass.endpoints", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://overpass.private.coffee/api/interpreter",
	})
	v.SetDefault("overpass.budget", "40s")
	v.SetDefault("overpass.request_timeout", "30s")
	v.SetDefault("overpass.attempts_per_endpoint", 2)
	v.SetDefault("overpass.query_timeout_sec", 25)
	v.SetDefault("overpass.max_radius_km", 25.0)
	v.SetDefault("overpass.default_radius_km", 5.0)
	v.SetDefault("overpass.strict_tags", false)
	v.SetDefault("enrich.max_pages", 3)
	v.SetDefault("enrich.delay", "700ms")
	v.SetDefault("enrich.timeout", "15s")
	v.SetDefault("enrich.full_ttl", "720h")
	v.SetDefault("enrich.empty_ttl", "240h")
	v.SetDefault("enrich.user_agent", "prospector/1.0 (+https://github.com/octobees/prospector)")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if _, err := cfg.Server.SearchRateLimit(); err != nil {
		return nil, eris.Wrapf(err, "config: invalid server.rate_limit_search %q", cfg.Server.RateLimitSearch)
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

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}
