// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} environment expansion
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	token := cfg.Ledger.Token
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names
const (
	ProviderFixture = "fixture"
	ProviderYNAB    = "ynab"
	ProviderAmazon  = "amazon"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Orders        OrdersConfig        `yaml:"orders"`
	Matcher       MatcherConfig       `yaml:"matcher"`
	Sync          SyncConfig          `yaml:"sync"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LedgerConfig selects and configures the remote ledger
type LedgerConfig struct {
	Provider    string        `yaml:"provider"` // "ynab" or "fixture"
	BaseURL     string        `yaml:"base_url"`
	BudgetID    string        `yaml:"budget_id"`
	Token       string        `yaml:"token"`
	RetryMax    int           `yaml:"retry_max"`
	Timeout     time.Duration `yaml:"timeout"`
	FixturePath string        `yaml:"fixture_path"`
}

// OrdersConfig selects and configures the order-history source
type OrdersConfig struct {
	Provider         string       `yaml:"provider"` // "amazon", "fixture" or "" for none
	FixturePath      string       `yaml:"fixture_path"`
	EarliestYear     int          `yaml:"earliest_year"`
	FetchConcurrency int          `yaml:"fetch_concurrency"`
	Amazon           AmazonConfig `yaml:"amazon"`
}

// AmazonConfig holds settings for the order scraper CLI
type AmazonConfig struct {
	Command  string `yaml:"command"`
	Profile  string `yaml:"profile"` // For multi-account support (optional)
	Headless bool   `yaml:"headless"`
}

// MatcherConfig holds matching tolerances. Amounts are in minor units.
type MatcherConfig struct {
	AmountTolerance int64    `yaml:"amount_tolerance"`
	StrictWindow    int      `yaml:"strict_window_days"`
	ExtendedWindow  int      `yaml:"extended_window_days"`
	MaxComboSize    int      `yaml:"max_combo_size"`
	PayeePatterns   []string `yaml:"payee_patterns"`
}

// SyncConfig holds pull settings
type SyncConfig struct {
	OverlapDays int `yaml:"overlap_days"`
}

// APIConfig holds review API settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the configuration used for anything a file leaves unset
func Defaults() *Config {
	return &Config{
		Storage: StorageConfig{DatabasePath: "itemize.db"},
		Ledger: LedgerConfig{
			Provider: ProviderYNAB,
			BaseURL:  "https://api.ynab.com/v1",
			RetryMax: 3,
			Timeout:  30 * time.Second,
		},
		Orders: OrdersConfig{
			Provider:         ProviderAmazon,
			FetchConcurrency: 2,
		},
		Matcher: MatcherConfig{
			AmountTolerance: 10,
			StrictWindow:    7,
			ExtendedWindow:  24,
			MaxComboSize:    4,
			PayeePatterns:   []string{`amazon`, `amzn`},
		},
		Sync: SyncConfig{OverlapDays: 7},
		API: APIConfig{
			Port:           8085,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// Load reads and parses the config file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${YNAB_TOKEN})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv reads KEY=VALUE files (default .env) into the environment.
// Variables that are already set win, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := Defaults()
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("ITEMIZE_DB_PATH", d.Storage.DatabasePath),
		},
		Ledger: LedgerConfig{
			Provider:    getEnv("LEDGER_PROVIDER", d.Ledger.Provider),
			BaseURL:     getEnv("YNAB_BASE_URL", d.Ledger.BaseURL),
			BudgetID:    os.Getenv("YNAB_BUDGET_ID"),
			Token:       os.Getenv("YNAB_TOKEN"),
			RetryMax:    getEnvInt("YNAB_RETRY_MAX", d.Ledger.RetryMax),
			Timeout:     d.Ledger.Timeout,
			FixturePath: os.Getenv("LEDGER_FIXTURE"),
		},
		Orders: OrdersConfig{
			Provider:         getEnv("ORDERS_PROVIDER", d.Orders.Provider),
			FixturePath:      os.Getenv("ORDERS_FIXTURE"),
			EarliestYear:     getEnvInt("ORDERS_EARLIEST_YEAR", 0),
			FetchConcurrency: getEnvInt("ORDERS_FETCH_CONCURRENCY", d.Orders.FetchConcurrency),
			Amazon: AmazonConfig{
				Command:  os.Getenv("AMAZON_CLI"),
				Profile:  getEnv("AMAZON_PROFILE", ""),
				Headless: os.Getenv("AMAZON_HEADLESS") == "true",
			},
		},
		Matcher: MatcherConfig{
			AmountTolerance: int64(getEnvInt("MATCH_AMOUNT_TOLERANCE", int(d.Matcher.AmountTolerance))),
			StrictWindow:    getEnvInt("MATCH_STRICT_WINDOW_DAYS", d.Matcher.StrictWindow),
			ExtendedWindow:  getEnvInt("MATCH_EXTENDED_WINDOW_DAYS", d.Matcher.ExtendedWindow),
			MaxComboSize:    getEnvInt("MATCH_MAX_COMBO_SIZE", d.Matcher.MaxComboSize),
			PayeePatterns:   getEnvList("MATCH_PAYEE_PATTERNS", d.Matcher.PayeePatterns),
		},
		Sync: SyncConfig{
			OverlapDays: getEnvInt("SYNC_OVERLAP_DAYS", d.Sync.OverlapDays),
		},
		API: APIConfig{
			Port:           getEnvInt("API_PORT", d.API.Port),
			AllowedOrigins: getEnvList("API_ALLOWED_ORIGINS", d.API.AllowedOrigins),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate rejects settings no component could run with
func (c *Config) Validate() error {
	switch c.Ledger.Provider {
	case ProviderYNAB, ProviderFixture:
	default:
		return fmt.Errorf("unknown ledger provider %q", c.Ledger.Provider)
	}
	switch c.Orders.Provider {
	case "", ProviderAmazon, ProviderFixture:
	default:
		return fmt.Errorf("unknown orders provider %q", c.Orders.Provider)
	}
	if c.Matcher.AmountTolerance < 0 {
		return fmt.Errorf("matcher amount tolerance must not be negative")
	}
	if c.Matcher.StrictWindow < 0 || c.Matcher.ExtendedWindow < c.Matcher.StrictWindow {
		return fmt.Errorf("matcher windows must satisfy 0 <= strict <= extended")
	}
	if c.Sync.OverlapDays < 0 {
		return fmt.Errorf("sync overlap must not be negative")
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma-separated environment variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Ledger.Token, "YNAB_TOKEN", "YNAB_ACCESS_TOKEN")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	if configValue != "" {
		return configValue
	}

	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
