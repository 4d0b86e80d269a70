package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	S3         S3Config
	Promo      PromoConfig
	Pricing    PricingConfig
	Redemption RedemptionConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `envconfig:"DB_HOST" default:"localhost"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"postgres"`
	Password        string `envconfig:"DB_PASSWORD"`
	Database        string `envconfig:"DB_NAME" default:"storefront"`
	MaxConnections  int    `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int    `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime int    `envconfig:"DB_MAX_CONN_LIFETIME" default:"300"` // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string `envconfig:"API_KEY"`
}

// S3Config holds AWS S3 configuration for promo seed files.
type S3Config struct {
	Enabled bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket  string `envconfig:"S3_BUCKET"`
	Region  string `envconfig:"S3_REGION" default:"us-east-1"`
	Prefix  string `envconfig:"S3_PREFIX" default:"promos/"`
}

// PromoConfig holds promo seeding and estimate cache configuration.
type PromoConfig struct {
	SeedFiles []string      `envconfig:"PROMO_SEED_FILES"`
	CacheTTL  time.Duration `envconfig:"PROMO_CACHE_TTL" default:"30s"`
}

// PricingConfig holds the shipping and tax policy parameters.
type PricingConfig struct {
	ShippingFlatFee       decimal.Decimal `envconfig:"SHIPPING_FLAT_FEE" default:"4.99"`
	ShippingFreeThreshold decimal.Decimal `envconfig:"SHIPPING_FREE_THRESHOLD" default:"50.00"`
	TaxRatePercent        decimal.Decimal `envconfig:"TAX_RATE_PERCENT" default:"8"`
}

// RedemptionConfig bounds redemption retries and compensation.
type RedemptionConfig struct {
	MaxAttempts     int           `envconfig:"REDEEM_MAX_ATTEMPTS" default:"3"`
	RetryBackoff    time.Duration `envconfig:"REDEEM_RETRY_BACKOFF" default:"10ms"`
	RollbackTimeout time.Duration `envconfig:"ROLLBACK_TIMEOUT" default:"5s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Promo.CacheTTL < 0 {
		return fmt.Errorf("promo cache TTL must not be negative")
	}

	if c.Pricing.ShippingFlatFee.IsNegative() {
		return fmt.Errorf("shipping flat fee must not be negative")
	}

	if c.Pricing.ShippingFreeThreshold.IsNegative() {
		return fmt.Errorf("shipping free threshold must not be negative")
	}

	if c.Pricing.TaxRatePercent.IsNegative() || c.Pricing.TaxRatePercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("invalid tax rate percent: %s (must be between 0 and 100)", c.Pricing.TaxRatePercent)
	}

	if c.Redemption.MaxAttempts < 1 {
		return fmt.Errorf("redeem max attempts must be at least 1")
	}

	if c.Redemption.RetryBackoff < 0 {
		return fmt.Errorf("redeem retry backoff must not be negative")
	}

	if c.Redemption.RollbackTimeout <= 0 {
		return fmt.Errorf("rollback timeout must be positive")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
