// Package config loads the storefront configuration from the environment.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/Davidgwa1996/unidigitalcom/pkg/config"

	"github.com/Davidgwa1996/unidigitalcom/internal/domain"
)

// Storage backends.
const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout int `env:"SHUTDOWN_TIMEOUT_SECONDS" envDefault:"15"`
	HealthTimeoutMS int `env:"HEALTH_CHECK_TIMEOUT_MS" envDefault:"2000"`

	// Session storage
	StorageBackend     string `env:"STORAGE_BACKEND" envDefault:"redis"`
	Namespace          string `env:"STOREFRONT_NAMESPACE" envDefault:"unidigital"`
	SessionTTLHours    int    `env:"SESSION_TTL_HOURS" envDefault:"168"`
	SessionIdleMinutes int    `env:"SESSION_IDLE_MINUTES" envDefault:"30"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Pricing
	TaxRate               decimal.Decimal   `env:"TAX_RATE" envDefault:"0.10"`
	FreeShippingThreshold decimal.Decimal   `env:"FREE_SHIPPING_THRESHOLD" envDefault:"50"`
	ShippingFee           decimal.Decimal   `env:"SHIPPING_FEE" envDefault:"9.99"`
	CurrencyRates         map[string]string `env:"CURRENCY_RATES" envKeyValSeparator:":" envSeparator:","`
	MaxQuantityPerItem    int               `env:"MAX_QUANTITY_PER_ITEM" envDefault:"100"`

	// Downstream APIs. Empty URLs select the in-process implementations.
	CatalogAPIURL string `env:"CATALOG_API_URL" envDefault:""`
	OrderAPIURL   string `env:"ORDER_API_URL" envDefault:""`

	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// HTTP surface
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	currencies *domain.CurrencyTable
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants and builds the currency table.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.HealthTimeoutMS < 1 {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT_MS must be at least 1")
	}
	switch c.StorageBackend {
	case StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", StorageRedis, StorageMemory, c.StorageBackend)
	}
	if strings.TrimSpace(c.Namespace) == "" {
		return fmt.Errorf("STOREFRONT_NAMESPACE is required")
	}
	if c.SessionTTLHours < 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must not be negative")
	}
	if c.SessionIdleMinutes < 1 {
		return fmt.Errorf("SESSION_IDLE_MINUTES must be at least 1")
	}
	if c.MaxQuantityPerItem < 0 {
		return fmt.Errorf("MAX_QUANTITY_PER_ITEM must not be negative")
	}
	if err := c.PricingPolicy().Validate(); err != nil {
		return fmt.Errorf("invalid pricing policy: %w", err)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTelSampleRate)
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED is set")
	}
	for _, cidr := range c.PprofAllowedCIDRs {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("invalid PPROF_ALLOWED_CIDRS entry %q: %w", cidr, err)
		}
	}

	overrides := make(map[string]decimal.Decimal, len(c.CurrencyRates))
	for code, raw := range c.CurrencyRates {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid CURRENCY_RATES rate for %s: %w", code, err)
		}
		overrides[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	table, err := domain.DefaultCurrencies().WithRates(overrides)
	if err != nil {
		return fmt.Errorf("invalid CURRENCY_RATES: %w", err)
	}
	c.currencies = table
	return nil
}

// PricingPolicy returns the tax and shipping settings.
func (c *Config) PricingPolicy() domain.PricingPolicy {
	return domain.PricingPolicy{
		TaxRate:               c.TaxRate,
		FreeShippingThreshold: c.FreeShippingThreshold,
		ShippingFee:           c.ShippingFee,
	}
}

// Currencies returns the currency table with any CURRENCY_RATES overrides applied.
func (c *Config) Currencies() *domain.CurrencyTable {
	if c.currencies == nil {
		return domain.DefaultCurrencies()
	}
	return c.currencies
}

// SessionTTL is the lifetime of idle session storage. Zero keeps it forever.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// SessionIdle is how long an unused cart store stays in memory.
func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// ShutdownGrace is the time allowed for in-flight requests on shutdown.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// HealthCheckTimeout bounds each readiness check.
func (c *Config) HealthCheckTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutMS) * time.Millisecond
}
