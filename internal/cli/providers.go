package cli

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/itemize-reconcile/internal/adapters/fixture"
	"github.com/eshaffer321/itemize-reconcile/internal/adapters/ledger"
	"github.com/eshaffer321/itemize-reconcile/internal/adapters/orders"
	"github.com/eshaffer321/itemize-reconcile/internal/adapters/orders/amazon"
	"github.com/eshaffer321/itemize-reconcile/internal/adapters/ynab"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/config"
)

// fixtures loads each fixture file once, so a ledger and an order source
// configured with the same file share one in-memory state.
type fixtures map[string]*fixture.Fixture

func (f fixtures) load(path string) (*fixture.Fixture, error) {
	if path == "" {
		return nil, fmt.Errorf("fixture provider needs a fixture path")
	}
	if fx, ok := f[path]; ok {
		return fx, nil
	}
	fx, err := fixture.Load(path)
	if err != nil {
		return nil, err
	}
	f[path] = fx
	return fx, nil
}

// newLedgerClient creates the configured ledger client
func newLedgerClient(cfg *config.Config, loaded fixtures, logger *slog.Logger) (ledger.Client, error) {
	switch cfg.Ledger.Provider {
	case config.ProviderFixture:
		fx, err := loaded.load(cfg.Ledger.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger fixture: %w", err)
		}
		return fx, nil
	case config.ProviderYNAB:
		client, err := ynab.NewClient(ynab.Config{
			BaseURL:  cfg.Ledger.BaseURL,
			BudgetID: cfg.Ledger.BudgetID,
			Token:    cfg.GetAPIKey(cfg.Ledger.Token, "YNAB_TOKEN"),
			RetryMax: cfg.Ledger.RetryMax,
			Timeout:  cfg.Ledger.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown ledger provider %q", cfg.Ledger.Provider)
	}
}

// newOrderSource creates the configured order source. It returns nil when
// no order source is configured.
func newOrderSource(cfg *config.Config, loaded fixtures, logger *slog.Logger) (orders.Source, error) {
	switch cfg.Orders.Provider {
	case "":
		return nil, nil
	case config.ProviderFixture:
		fx, err := loaded.load(cfg.Orders.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders fixture: %w", err)
		}
		return fx, nil
	case config.ProviderAmazon:
		return amazon.NewSource(logger, &amazon.Config{
			Command:  cfg.Orders.Amazon.Command,
			Profile:  cfg.Orders.Amazon.Profile,
			Headless: cfg.Orders.Amazon.Headless,
		}), nil
	default:
		return nil, fmt.Errorf("unknown orders provider %q", cfg.Orders.Provider)
	}
}

// payeePatterns returns the configured merchant patterns, falling back to
// the order source's own when none are set.
func payeePatterns(cfg *config.Config) []string {
	if len(cfg.Matcher.PayeePatterns) > 0 {
		return cfg.Matcher.PayeePatterns
	}
	return amazon.MerchantPatterns()
}
