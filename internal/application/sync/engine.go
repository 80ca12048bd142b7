// Package sync moves data between the upstreams and the local store.
//
// A pull fetches everything it needs before writing anything, so an upstream
// failure leaves both the store and the checkpoint exactly as they were. A
// push writes one charge at a time and marks it pushed only after the ledger
// confirmed the write.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/adapters/ledger"
	"github.com/eshaffer321/itemize-reconcile/internal/adapters/orders"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// Engine runs pulls, pushes and reconciles
type Engine struct {
	store   storage.Repository
	ledger  ledger.Client
	orders  orders.Source
	matcher *matcher.Matcher
	config  Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates a new sync engine. The order source and matcher may be nil.
func NewEngine(
	store storage.Repository,
	ledgerClient ledger.Client,
	orderSource orders.Source,
	m *matcher.Matcher,
	config Config,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if config.OverlapDays <= 0 {
		config.OverlapDays = DefaultOverlapDays
	}
	if config.FetchConcurrency <= 0 {
		config.FetchConcurrency = 1
	}

	return &Engine{
		store:   store,
		ledger:  ledgerClient,
		orders:  orderSource,
		matcher: m,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the clock used for checkpoints.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Reconcile pulls and then matches in one recorded run. The matcher only
// ever sees the store after a completed pull.
func (e *Engine) Reconcile(ctx context.Context, opts PullOptions) (*ReconcileResult, error) {
	if err := opts.Scope.validate(); err != nil {
		return nil, err
	}

	runID := e.startRun(ctx, storage.SyncRun{
		Operation: "reconcile",
		Mode:      string(opts.Mode),
		Scope:     opts.Scope.String(),
	})
	result := &ReconcileResult{RunID: runID}

	pull, err := e.pull(ctx, opts)
	if err != nil {
		e.completeRun(ctx, runID, storage.RunCounts{}, err)
		return nil, err
	}
	pull.RunID = runID
	result.Pull = pull

	if e.matcher != nil {
		match, err := e.matcher.Run(ctx)
		if err != nil {
			e.completeRun(ctx, runID, pullCounts(pull), err)
			return nil, err
		}
		result.Match = match
	}

	e.completeRun(ctx, runID, pullCounts(pull), nil)
	return result, nil
}
