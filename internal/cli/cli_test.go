package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncengine "github.com/eshaffer321/itemize-reconcile/internal/application/sync"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/config"
)

const sampleFixture = "../adapters/fixture/testdata/sample.yaml"

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.Defaults()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "itemize.db")
	cfg.Ledger.Provider = config.ProviderFixture
	cfg.Ledger.FixturePath = sampleFixture
	cfg.Orders.Provider = config.ProviderFixture
	cfg.Orders.FixturePath = sampleFixture
	cfg.Orders.EarliestYear = 2023

	app, err := newApp(cfg, func(string) *slog.Logger {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestParsePullFlags(t *testing.T) {
	flags, err := ParsePullFlags([]string{"-full", "-source", "orders", "-year", "2023"}, io.Discard)
	require.NoError(t, err)

	opts := flags.Options()
	assert.Equal(t, syncengine.ModeFull, opts.Mode)
	assert.Equal(t, syncengine.Scope{Source: "orders", Year: 2023}, opts.Scope)
	assert.True(t, flags.Match)

	flags, err = ParsePullFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, syncengine.ModeIncremental, flags.Options().Mode)

	_, err = ParsePullFlags([]string{"extra"}, io.Discard)
	assert.Error(t, err)
}

func TestParseDecideFlags(t *testing.T) {
	t.Run("category", func(t *testing.T) {
		flags, err := ParseDecideFlags([]string{"-category", "fuel", "-stage", "t-1"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, "t-1", flags.ChargeID)
		assert.Equal(t, "fuel", flags.Category)
		assert.True(t, flags.Stage)
	})

	t.Run("splits", func(t *testing.T) {
		flags, err := ParseDecideFlags([]string{
			"-split", "-29.99:groceries",
			"-split", "-15.68:household:soap",
			"t-1",
		}, io.Discard)
		require.NoError(t, err)
		require.Len(t, flags.Splits, 2)
		assert.Equal(t, model.Split{Amount: money.Amount(-2999), CategoryID: "groceries"}, flags.Splits[0])
		assert.Equal(t, "soap", flags.Splits[1].Memo)
	})

	t.Run("by items with overrides", func(t *testing.T) {
		flags, err := ParseDecideFlags([]string{"-by-items", "-item", "1=household", "t-1"}, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{1: "household"}, flags.Overrides)
	})

	invalid := map[string][]string{
		"no charge":          {"-category", "fuel"},
		"two charges":        {"-category", "fuel", "a", "b"},
		"nothing chosen":     {"t-1"},
		"category and split": {"-category", "fuel", "-split", "-1.00:fuel", "t-1"},
		"bad split":          {"-split", "lots:fuel", "t-1"},
		"split no category":  {"-split", "-1.00", "t-1"},
		"item without items": {"-category", "fuel", "-item", "0=fuel", "t-1"},
		"bad item index":     {"-by-items", "-item", "x=fuel", "t-1"},
	}
	for name, args := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDecideFlags(args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestPayeePatterns_FallBackToSource(t *testing.T) {
	cfg := config.Defaults()
	cfg.Matcher.PayeePatterns = nil
	assert.Contains(t, payeePatterns(cfg), "whole foods")

	cfg.Matcher.PayeePatterns = []string{"costco"}
	assert.Equal(t, []string{"costco"}, payeePatterns(cfg))
}

func TestNewApp_SharesFixture(t *testing.T) {
	loaded := fixtures{}
	cfg := config.Defaults()
	cfg.Ledger.Provider = config.ProviderFixture
	cfg.Ledger.FixturePath = sampleFixture
	cfg.Orders.Provider = config.ProviderFixture
	cfg.Orders.FixturePath = sampleFixture

	ledgerClient, err := newLedgerClient(cfg, loaded, nil)
	require.NoError(t, err)
	source, err := newOrderSource(cfg, loaded, nil)
	require.NoError(t, err)
	assert.Same(t, loaded[sampleFixture], ledgerClient)
	assert.Same(t, loaded[sampleFixture], source)

	cfg.Orders.Provider = ""
	source, err = newOrderSource(cfg, loaded, nil)
	require.NoError(t, err)
	assert.Nil(t, source)
}

func TestNewApp_RejectsBadProviders(t *testing.T) {
	cfg := config.Defaults()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "itemize.db")

	cfg.Ledger.Provider = config.ProviderFixture
	_, err := newApp(cfg, func(string) *slog.Logger { return slog.Default() })
	assert.ErrorContains(t, err, "fixture path")

	cfg.Ledger.Provider = config.ProviderYNAB
	_, err = newApp(cfg, func(string) *slog.Logger { return slog.Default() })
	assert.ErrorContains(t, err, "budget id")

	_, statErr := os.Stat(cfg.Storage.DatabasePath)
	assert.NoError(t, statErr, "the store is created before wiring fails")
}

func TestCommands_ReviewCycle(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, RunPull(ctx, app, nil, &out))
	assert.Contains(t, out.String(), "Ledger:  fetched=3 inserted=3 updated=0")
	assert.Contains(t, out.String(), "Orders:  fetched=2 inserted=2")
	assert.Contains(t, out.String(), "strict=1 extended=0 unmatched=0")

	out.Reset()
	require.NoError(t, RunMatch(ctx, app, []string{"-dry-run"}, &out))
	assert.Contains(t, out.String(), "itemize match (DRY-RUN)")
	assert.Contains(t, out.String(), "considered=1 strict=1")

	out.Reset()
	require.NoError(t, RunSuggest(ctx, app, nil, &out))
	assert.Contains(t, out.String(), "t-amazon-1  2024-03-10  -45.67")
	assert.Contains(t, out.String(), "Order: 114-0001  2024-03-11  total 45.67 (strict)")
	assert.Contains(t, out.String(), "[1] Dish Soap x2  15.68")

	out.Reset()
	require.NoError(t, RunDecide(ctx, app, []string{
		"-by-items", "-item", "0=groceries", "-item", "1=household", "t-amazon-1",
	}, &out))
	assert.Contains(t, out.String(), "[locally-modified]")
	assert.Contains(t, out.String(), "-29.99  groceries")
	assert.Contains(t, out.String(), "-15.68  household")

	out.Reset()
	require.NoError(t, RunStage(ctx, app, []string{"t-amazon-1", "t-shell"}, &out))
	assert.Equal(t, "Staged 1 of 2 charges.\n", out.String())

	out.Reset()
	require.NoError(t, RunPush(ctx, app, []string{"-dry-run"}, &out))
	assert.Contains(t, out.String(), "Pending: 1")
	assert.Contains(t, out.String(), "(uncategorized) -> split: Groceries -29.99, Household -15.68")

	out.Reset()
	require.NoError(t, RunPush(ctx, app, nil, &out))
	assert.Contains(t, out.String(), "Pending=1 Pushed=1 Skipped=0 Failed=0")

	out.Reset()
	require.NoError(t, RunStatus(ctx, app, nil, &out))
	assert.Contains(t, out.String(), "Charges: 3 (uncategorized 0)")
	assert.Contains(t, out.String(), "pending-push      0")
	assert.Contains(t, out.String(), "Recent runs:")

	out.Reset()
	require.NoError(t, RunSuggest(ctx, app, nil, &out))
	assert.Equal(t, "Nothing to review.\n", out.String())
}

func TestRunDecide_UnknownCharge(t *testing.T) {
	app := newTestApp(t)

	err := RunDecide(context.Background(), app, []string{"-category", "fuel", "missing"}, io.Discard)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRunStage_NeedsIDs(t *testing.T) {
	app := newTestApp(t)
	assert.Error(t, RunStage(context.Background(), app, nil, io.Discard))
}

func TestCommands_ConflictsAndDiscard(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, RunPull(ctx, app, []string{"-source", "ledger"}, &out))

	out.Reset()
	require.NoError(t, RunRequeue(ctx, app, nil, &out))
	assert.Equal(t, "No conflicts.\n", out.String())

	// The ledger drops the fuel category from t-shell
	_, err := app.Store.UpsertCharges(ctx, []model.Charge{{
		ID:     "t-shell",
		Payee:  "Shell Oil 5742",
		Amount: money.Amount(-3810),
		Date:   time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
	}})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, RunStatus(ctx, app, nil, &out))
	assert.Contains(t, out.String(), "conflict          1")

	out.Reset()
	require.NoError(t, RunRequeue(ctx, app, nil, &out))
	assert.Equal(t, "Requeued 1 of 1 charges.\n", out.String())

	out.Reset()
	require.NoError(t, RunDecide(ctx, app, []string{"-category", "household", "t-amazon-1"}, &out))
	require.NoError(t, RunDiscard(ctx, app, []string{"t-amazon-1"}, &out))
	assert.Contains(t, out.String(), "Discarded 1 of 1 charges.\n")

	charge, err := app.Store.GetCharge(ctx, "t-amazon-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSynced, charge.Status)
	assert.Empty(t, charge.CategoryID)

	assert.Error(t, RunDiscard(ctx, app, nil, io.Discard))
}
