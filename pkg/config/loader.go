package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct uses `env` and `envDefault` tags; types implementing
// encoding.TextUnmarshaler (such as decimal.Decimal) are parsed directly.
//
//	type Config struct {
//	    Port    int             `env:"HTTP_PORT" envDefault:"8080"`
//	    TaxRate decimal.Decimal `env:"TAX_RATE" envDefault:"0.10"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadFrom parses the given variables instead of the process environment.
// Unset variables fall back to their envDefault.
func LoadFrom(cfg any, vars map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
