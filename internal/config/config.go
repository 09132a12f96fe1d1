// config.go — Configuration loading with priority cascade.
// Priority: defaults < environment variables. The original deployment is
// env-driven (.env), so there are no config file layers.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all resolved configuration values for both binaries.
type Config struct {
	// Capture harness
	Headless bool   // HEADLESS: run the browser without a window
	OutDir   string // AETHERIA_OUT_DIR: artifact directory

	// Ingest server
	Port               int    // PORT: HTTP listen port
	SupabaseURL        string // SUPABASE_URL: persistence REST base
	SupabaseKey        string // SUPABASE_SERVICE_KEY, falling back to SUPABASE_ANON_KEY
	DefaultCountryCode string // DEFAULT_COUNTRY_CODE: E.164 prefix for 10-digit nationals
	BandsFile          string // AETHERIA_BANDS_FILE: banding overrides (optional)
}

// Defaults returns the base configuration with sensible defaults.
func Defaults() Config {
	return Config{
		Headless:           false,
		OutDir:             "captures",
		Port:               8000,
		DefaultCountryCode: "91",
	}
}

// Load builds the final configuration: defaults < env vars.
func Load() (Config, error) {
	cfg := Defaults()
	loadEnvVars(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadEnvVars applies environment variable overrides to cfg.
func loadEnvVars(cfg *Config) {
	if v := os.Getenv("HEADLESS"); v != "" {
		cfg.Headless = v == "1" || v == "true" || v == "True"
	}
	if v := os.Getenv("AETHERIA_OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.SupabaseURL = v
	}
	if v := os.Getenv("SUPABASE_SERVICE_KEY"); v != "" {
		cfg.SupabaseKey = v
	} else if v := os.Getenv("SUPABASE_ANON_KEY"); v != "" {
		cfg.SupabaseKey = v
	}
	if v := os.Getenv("DEFAULT_COUNTRY_CODE"); v != "" {
		cfg.DefaultCountryCode = v
	}
	if v := os.Getenv("AETHERIA_BANDS_FILE"); v != "" {
		cfg.BandsFile = v
	}
}

// Validate checks the final configuration for invalid values.
func (c Config) Validate() error {
	if c.OutDir == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	return nil
}
