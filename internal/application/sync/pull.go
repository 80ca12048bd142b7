package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/itemize-reconcile/internal/adapters/ledger"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// Pull fetches from the upstreams in scope and applies the results to the store.
// The checkpoint of a source advances only when its pull completed fully.
func (e *Engine) Pull(ctx context.Context, opts PullOptions) (*PullResult, error) {
	if err := opts.Scope.validate(); err != nil {
		return nil, err
	}

	runID := e.startRun(ctx, storage.SyncRun{
		Operation: "pull",
		Mode:      string(opts.Mode),
		Scope:     opts.Scope.String(),
	})

	result, err := e.pull(ctx, opts)
	if err != nil {
		e.completeRun(ctx, runID, storage.RunCounts{}, err)
		return nil, err
	}
	result.RunID = runID
	e.completeRun(ctx, runID, pullCounts(result), nil)
	return result, nil
}

func (e *Engine) pull(ctx context.Context, opts PullOptions) (*PullResult, error) {
	if opts.Mode == "" {
		opts.Mode = ModeIncremental
	}
	if opts.Mode != ModeIncremental && opts.Mode != ModeFull {
		return nil, fmt.Errorf("unknown pull mode %q", opts.Mode)
	}

	result := &PullResult{}

	if opts.Scope.includesLedger() {
		if err := e.pullLedger(ctx, opts.Mode, result); err != nil {
			return nil, err
		}
	}

	if opts.Scope.includesOrders() && e.orders != nil {
		if err := e.pullOrders(ctx, opts, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// checkpoint returns the stored state of a source, or nil before the first pull
func (e *Engine) checkpoint(ctx context.Context, source model.Source) (*model.SyncState, error) {
	state, err := e.store.GetSyncState(ctx, source)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s checkpoint: %w", source, err)
	}
	return state, nil
}

func (e *Engine) pullLedger(ctx context.Context, mode Mode, result *PullResult) error {
	state, err := e.checkpoint(ctx, model.SourceLedger)
	if err != nil {
		return err
	}

	// The overlap window is date-bounded only. A server cursor would narrow
	// the listing to changes after it and defeat the re-fetch.
	req := ledger.ListRequest{}
	if mode == ModeIncremental && state != nil {
		since := state.LastSync.AddDate(0, 0, -e.config.OverlapDays)
		req.Since = &since
	}

	e.logger.Info("Pulling ledger", "mode", mode, "since", req.Since)

	// Fetch everything before writing anything
	charges, cursor, err := e.fetchLedger(ctx, req)
	if err != nil {
		return err
	}
	categories, err := e.ledger.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("%w: list categories: %w", ErrUpstream, err)
	}

	existing, err := e.store.ListCategorizations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read categorization history: %w", err)
	}

	completedAt := e.now()
	applied, err := e.store.ApplyLedgerPull(ctx, storage.LedgerPull{
		Charges:    charges,
		Categories: categories,
		History:    ledgerHistory(charges, categories, existing),
		State: model.SyncState{
			Source:      model.SourceLedger,
			LastSync:    completedAt,
			Cursor:      cursor,
			RecordCount: len(charges),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to store ledger pull: %w", err)
	}
	upsert := applied.Charges

	for _, id := range upsert.Inconsistent {
		e.logger.Warn("Local splits no longer match the ledger amount", "charge_id", id)
	}
	for _, id := range upsert.Conflicts {
		e.logger.Warn("Ledger dropped a synced category; keeping the local one", "charge_id", id)
	}

	result.Ledger = &SourceResult{
		Since:      req.Since,
		Fetched:    len(charges),
		Inserted:   upsert.Inserted,
		Updated:    upsert.Updated,
		Checkpoint: &completedAt,
	}
	result.Categories = len(categories)
	result.History = applied.HistoryAppended
	result.Inconsistent = upsert.Inconsistent
	result.Conflicts = upsert.Conflicts

	e.logger.Info("Pulled ledger",
		"fetched", len(charges),
		"inserted", upsert.Inserted,
		"updated", upsert.Updated,
		"categories", len(categories),
		"history", applied.HistoryAppended,
		"conflicts", len(upsert.Conflicts),
	)
	return nil
}

// fetchLedger reads every page of a listing. A page token seen before means
// the adapter is not advancing, and the listing fails.
func (e *Engine) fetchLedger(ctx context.Context, req ledger.ListRequest) ([]model.Charge, string, error) {
	var charges []model.Charge
	cursor := req.Cursor
	seen := make(map[string]bool)

	for page := 1; ; page++ {
		resp, err := e.ledger.ListTransactions(ctx, req)
		if err != nil {
			return nil, "", fmt.Errorf("%w: list transactions (page %d): %w", ErrUpstream, page, err)
		}
		charges = append(charges, resp.Charges...)
		if resp.Cursor != "" {
			cursor = resp.Cursor
		}
		if resp.NextPageToken == "" {
			break
		}
		if seen[resp.NextPageToken] {
			return nil, "", fmt.Errorf("%w: list transactions (page %d): page token %q repeated", ErrUpstream, page, resp.NextPageToken)
		}
		seen[resp.NextPageToken] = true
		req.PageToken = resp.NextPageToken
	}

	return charges, cursor, nil
}

// ledgerHistory builds records for categorizations made on the ledger itself
// so the learner sees them. Charges that already have a record for their
// category are skipped, which keeps re-pulls and our own pushes from double
// counting.
func ledgerHistory(charges []model.Charge, categories []model.Category, existing []model.CategorizationRecord) []model.CategorizationRecord {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	seen := make(map[string]bool, len(existing))
	for _, rec := range existing {
		seen[rec.ChargeID+"\x00"+rec.CategoryID] = true
	}

	var records []model.CategorizationRecord
	for _, c := range charges {
		if c.CategoryID == "" || c.Payee == "" || seen[c.ID+"\x00"+c.CategoryID] {
			continue
		}
		records = append(records, model.CategorizationRecord{
			Kind:         model.KindPayee,
			Description:  c.Payee,
			CategoryID:   c.CategoryID,
			CategoryName: names[c.CategoryID],
			ChargeID:     c.ID,
			RecordedAt:   c.Date,
		})
	}
	return records
}

func (e *Engine) pullOrders(ctx context.Context, opts PullOptions, result *PullResult) error {
	state, err := e.checkpoint(ctx, model.SourceOrders)
	if err != nil {
		return err
	}

	var since *time.Time
	if opts.Mode == ModeIncremental && state != nil && opts.Scope.Year == 0 {
		s := state.LastSync.AddDate(0, 0, -e.config.OverlapDays)
		since = &s
	}
	years := e.orderYears(opts, since)

	e.logger.Info("Pulling orders", "mode", opts.Mode, "years", years)

	fetched, err := e.fetchOrderYears(ctx, years)
	if err != nil {
		return err
	}

	// A single-year pull is partial and never moves the checkpoint
	var checkpoint *model.SyncState
	var completedAt *time.Time
	if opts.Scope.Year == 0 {
		at := e.now()
		completedAt = &at
		checkpoint = &model.SyncState{
			Source:      model.SourceOrders,
			LastSync:    at,
			RecordCount: len(fetched),
		}
	}

	written, err := e.store.ApplyOrderPull(ctx, fetched, checkpoint)
	if err != nil {
		return fmt.Errorf("failed to store orders: %w", err)
	}

	result.Orders = &SourceResult{
		Since:      since,
		Years:      years,
		Fetched:    len(fetched),
		Inserted:   written,
		Checkpoint: completedAt,
	}
	e.logger.Info("Pulled orders", "fetched", len(fetched), "years", len(years))
	return nil
}

// orderYears lists the years to fetch, newest first
func (e *Engine) orderYears(opts PullOptions, since *time.Time) []int {
	if opts.Scope.Year != 0 {
		return []int{opts.Scope.Year}
	}

	current := e.now().Year()
	earliest := e.config.EarliestOrderYear
	if since != nil {
		earliest = since.Year()
	} else if earliest == 0 || earliest > current {
		earliest = current - 1
	}

	var years []int
	for y := current; y >= earliest; y-- {
		years = append(years, y)
	}
	return years
}

// fetchOrderYears fetches years concurrently and returns the merged orders
// sorted by date then ID. Later duplicates of an order ID replace earlier ones.
func (e *Engine) fetchOrderYears(ctx context.Context, years []int) ([]model.Order, error) {
	perYear := make([][]model.Order, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.FetchConcurrency)
	for i, year := range years {
		i, year := i, year
		g.Go(func() error {
			orders, err := e.orders.ListOrders(gctx, year)
			if err != nil {
				return fmt.Errorf("%w: list orders for %d: %w", ErrUpstream, year, err)
			}
			perYear[i] = orders
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]model.Order)
	for _, orders := range perYear {
		for _, o := range orders {
			byID[o.ID] = o
		}
	}

	merged := make([]model.Order, 0, len(byID))
	for _, o := range byID {
		merged = append(merged, o)
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Date.Equal(merged[j].Date) {
			return merged[i].Date.Before(merged[j].Date)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged, nil
}
