// Package cli wires configuration, storage, adapters and engines together
// and implements the itemize subcommands on top of them.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/eshaffer321/itemize-reconcile/internal/application/review"
	syncengine "github.com/eshaffer321/itemize-reconcile/internal/application/sync"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/learner"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/config"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/logging"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// App holds everything a subcommand works with
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *storage.Storage
	Matcher *matcher.Matcher
	Engine  *syncengine.Engine
	Learner *learner.Learner
	Review  *review.Service

	loggerFor func(system string) *slog.Logger
}

// NewApp opens the store and builds the engines from cfg.
// Call Close when done.
func NewApp(cfg *config.Config) (*App, error) {
	logCfg := cfg.Observability.Logging
	return newApp(cfg, func(system string) *slog.Logger {
		return logging.NewLoggerWithSystem(logCfg, system)
	})
}

// newApp builds the app with one scoped logger per system
func newApp(cfg *config.Config, loggerFor func(system string) *slog.Logger) (*App, error) {
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	app, err := wire(cfg, store, loggerFor)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func wire(cfg *config.Config, store *storage.Storage, loggerFor func(system string) *slog.Logger) (*App, error) {
	loaded := fixtures{}

	ledgerClient, err := newLedgerClient(cfg, loaded, loggerFor("ledger"))
	if err != nil {
		return nil, err
	}
	orderSource, err := newOrderSource(cfg, loaded, loggerFor("orders"))
	if err != nil {
		return nil, err
	}

	isMerchant, err := matcher.PayeePatterns(payeePatterns(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("invalid payee pattern: %w", err)
	}
	m := matcher.NewMatcher(matcher.Config{
		AmountTolerance: money.Amount(cfg.Matcher.AmountTolerance),
		StrictWindow:    cfg.Matcher.StrictWindow,
		ExtendedWindow:  cfg.Matcher.ExtendedWindow,
		MaxComboSize:    cfg.Matcher.MaxComboSize,
	}, store, isMerchant, loggerFor("matcher"))

	engine := syncengine.NewEngine(store, ledgerClient, orderSource, m, syncengine.Config{
		OverlapDays:       cfg.Sync.OverlapDays,
		EarliestOrderYear: cfg.Orders.EarliestYear,
		FetchConcurrency:  cfg.Orders.FetchConcurrency,
	}, loggerFor("sync"))

	l := learner.New(store, loggerFor("learner"))

	return &App{
		Config:  cfg,
		Logger:  loggerFor("itemize"),
		Store:   store,
		Matcher: m,
		Engine:  engine,
		Learner: l,
		Review:  review.NewService(store, l, loggerFor("review")),

		loggerFor: loggerFor,
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}
