package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Stripe    StripeConfig    `json:"stripe"`
	Catalog   CatalogConfig   `json:"catalog"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Tracing   TracingConfig   `json:"tracing"`
	Features  FeaturesConfig  `json:"features"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port string `json:"port"`
	Host string `json:"host"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins"`
}

// StripeConfig holds payment-processor configuration.
type StripeConfig struct {
	SecretKey string `json:"secret_key"`
	BaseURL   string `json:"base_url"` // override for tests only
	// Timeout for payment intent creation, in seconds
	TimeoutSeconds int `json:"timeout_seconds"`
}

// CatalogConfig holds streaming-catalog configuration.
type CatalogConfig struct {
	BaseURL string `json:"base_url"` // override for tests only
	// Timeout covering all three range queries, in seconds
	TimeoutSeconds int `json:"timeout_seconds"`
}

// CacheConfig holds top-artists cache configuration.
type CacheConfig struct {
	Enabled       bool   `json:"enabled"`
	RedisAddr     string `json:"redis_addr"` // empty selects the in-memory cache
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
	TTLSeconds    int    `json:"ttl_seconds"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool `json:"enabled"`
	Rate    int  `json:"rate"`
	Window  int  `json:"window"` // in seconds
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	Environment string `json:"environment"`
}

// FeaturesConfig holds feature flag defaults.
type FeaturesConfig struct {
	SimulatedDonations bool `json:"simulated_donations"`
}

// LoadConfig loads configuration from environment variables and/or config file.
// Environment variables take precedence over config file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaults()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	overrideFromEnv(cfg)

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: "*",
		},
		Stripe: StripeConfig{
			TimeoutSeconds: 10,
		},
		Catalog: CatalogConfig{
			TimeoutSeconds: 10,
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: 60,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Window:  60,
		},
		Features: FeaturesConfig{
			SimulatedDonations: true,
		},
	}
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Host, "SERVER_HOST")
	setString(&cfg.Server.AllowedOrigins, "ALLOWED_ORIGINS")

	setString(&cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Stripe.BaseURL, "STRIPE_BASE_URL")
	setInt(&cfg.Stripe.TimeoutSeconds, "STRIPE_TIMEOUT_SECONDS")

	setString(&cfg.Catalog.BaseURL, "CATALOG_BASE_URL")
	setInt(&cfg.Catalog.TimeoutSeconds, "CATALOG_TIMEOUT_SECONDS")

	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.RedisAddr, "CACHE_REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "CACHE_REDIS_PASSWORD")
	setInt(&cfg.Cache.RedisDB, "CACHE_REDIS_DB")
	setInt(&cfg.Cache.TTLSeconds, "CACHE_TTL_SECONDS")

	setBool(&cfg.RateLimit.Enabled, "RATE_LIMIT_ENABLED")
	setInt(&cfg.RateLimit.Rate, "RATE_LIMIT_RATE")
	setInt(&cfg.RateLimit.Window, "RATE_LIMIT_WINDOW")

	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "TRACING_ENDPOINT")
	setString(&cfg.Tracing.Environment, "TRACING_ENVIRONMENT")

	setBool(&cfg.Features.SimulatedDonations, "FEATURE_SIMULATED_DONATIONS")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			*dst = i
		}
	}
}

func setBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = strings.ToLower(value) == "true" || value == "1"
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Stripe.SecretKey == "" && !c.Features.SimulatedDonations {
		return fmt.Errorf("stripe secret key is required when simulated donations are disabled")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("rate limit rate must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}
	return nil
}
