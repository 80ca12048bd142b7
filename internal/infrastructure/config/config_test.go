package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "ledger.db"
ledger:
  provider: fixture
  fixture_path: "testdata/ledger.yaml"
  timeout: 5s
orders:
  earliest_year: 2021
  amazon:
    profile: household
    headless: true
matcher:
  payee_patterns: ["amazon", "whole foods"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ledger.db", cfg.Storage.DatabasePath)
	assert.Equal(t, ProviderFixture, cfg.Ledger.Provider)
	assert.Equal(t, 5*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, 2021, cfg.Orders.EarliestYear)
	assert.Equal(t, "household", cfg.Orders.Amazon.Profile)
	assert.True(t, cfg.Orders.Amazon.Headless)
	assert.Equal(t, []string{"amazon", "whole foods"}, cfg.Matcher.PayeePatterns)

	// Unset sections keep their defaults
	assert.Equal(t, ProviderAmazon, cfg.Orders.Provider)
	assert.Equal(t, int64(10), cfg.Matcher.AmountTolerance)
	assert.Equal(t, 7, cfg.Matcher.StrictWindow)
	assert.Equal(t, 24, cfg.Matcher.ExtendedWindow)
	assert.Equal(t, 7, cfg.Sync.OverlapDays)
	assert.Equal(t, 8085, cfg.API.Port)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown ledger", "ledger:\n  provider: mint\n"},
		{"unknown orders", "orders:\n  provider: walmart\n"},
		{"inverted windows", "matcher:\n  strict_window_days: 30\n  extended_window_days: 7\n"},
		{"negative tolerance", "matcher:\n  amount_tolerance: -1\n"},
		{"bad yaml", "storage: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ITEMIZE_DB_PATH", "test.db")
	t.Setenv("YNAB_TOKEN", "test-token")
	t.Setenv("YNAB_BUDGET_ID", "budget-1")
	t.Setenv("MATCH_PAYEE_PATTERNS", "amazon, amzn ,")
	t.Setenv("AMAZON_HEADLESS", "true")

	cfg := LoadFromEnv()
	assert.Equal(t, "test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "test-token", cfg.Ledger.Token)
	assert.Equal(t, "budget-1", cfg.Ledger.BudgetID)
	assert.Equal(t, []string{"amazon", "amzn"}, cfg.Matcher.PayeePatterns)
	assert.True(t, cfg.Orders.Amazon.Headless)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("ITEMIZE_DB_PATH", "")
	t.Setenv("SYNC_OVERLAP_DAYS", "not-a-number")

	cfg := LoadFromEnv()
	assert.Equal(t, "itemize.db", cfg.Storage.DatabasePath)
	assert.Equal(t, 7, cfg.Sync.OverlapDays)
	assert.Equal(t, ProviderYNAB, cfg.Ledger.Provider)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOrEnv_FallbackToEnv(t *testing.T) {
	t.Setenv("ITEMIZE_DB_PATH", "fallback.db")

	cfg := LoadOrEnvWithPath("nonexistent.yaml")
	assert.NotNil(t, cfg)
	assert.Equal(t, "fallback.db", cfg.Storage.DatabasePath)
}

func TestEnvVarExpansion(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "${TEST_DB_PATH}"
ledger:
  token: "${TEST_YNAB_TOKEN}"
`)
	t.Setenv("TEST_DB_PATH", "expanded.db")
	t.Setenv("TEST_YNAB_TOKEN", "expanded-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "expanded-token", cfg.Ledger.Token)
}

func TestGetAPIKey(t *testing.T) {
	cfg := Defaults()
	t.Setenv("SECOND_TOKEN", "from-env")

	assert.Equal(t, "configured", cfg.GetAPIKey("configured", "SECOND_TOKEN"))
	assert.Equal(t, "from-env", cfg.GetAPIKey("", "FIRST_TOKEN_UNSET", "SECOND_TOKEN"))
	assert.Empty(t, cfg.GetAPIKey("", "FIRST_TOKEN_UNSET"))
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ITEMIZE_TEST_BUDGET=from-file\nITEMIZE_TEST_TOKEN=from-file\n"), 0600))

	// Registered for restore, then cleared so the file can set it
	t.Setenv("ITEMIZE_TEST_BUDGET", "")
	require.NoError(t, os.Unsetenv("ITEMIZE_TEST_BUDGET"))
	t.Setenv("ITEMIZE_TEST_TOKEN", "from-env")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("ITEMIZE_TEST_BUDGET"))
	assert.Equal(t, "from-env", os.Getenv("ITEMIZE_TEST_TOKEN"), "the environment wins over the file")

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "none.env")))
}
