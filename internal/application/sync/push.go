package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/adapters/ledger"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/validator"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// Push writes pending-push charges to the ledger, oldest modification first.
// A failed charge is reported and stays pending; the rest of the queue is still pushed.
// A dry run only describes the queue and records no sync run.
func (e *Engine) Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	if opts.DryRun {
		return e.previewPush(ctx)
	}

	runID := e.startRun(ctx, storage.SyncRun{Operation: "push"})
	result := &PushResult{RunID: runID, Failures: []PushFailure{}}

	pending, err := e.store.PendingPush(ctx)
	if err != nil {
		err = fmt.Errorf("failed to list pending charges: %w", err)
		e.completeRun(ctx, runID, storage.RunCounts{}, err)
		return nil, err
	}
	result.Pending = len(pending)

	e.logger.Info("Pushing charges", "pending", len(pending))

	for _, queued := range pending {
		if err := ctx.Err(); err != nil {
			e.completeRun(ctx, runID, pushCounts(result), err)
			return result, err
		}

		pushed, err := e.pushCharge(ctx, runID, queued.ID, result)
		if err != nil {
			e.completeRun(ctx, runID, pushCounts(result), err)
			return result, err
		}
		if pushed {
			result.Pushed++
		}
	}

	e.completeRun(ctx, runID, pushCounts(result), nil)
	e.logger.Info("Push complete",
		"pushed", result.Pushed,
		"skipped", result.Skipped,
		"failed", result.Failed(),
	)
	return result, nil
}

func (e *Engine) previewPush(ctx context.Context) (*PushResult, error) {
	pending, err := e.store.PendingPush(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending charges: %w", err)
	}

	diffs, err := e.describe(ctx, pending)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Previewed push", "pending", len(pending))
	return &PushResult{
		DryRun:   true,
		Pending:  len(pending),
		Diffs:    diffs,
		Failures: []PushFailure{},
	}, nil
}

// pushCharge pushes one charge. Only store errors are returned; remote and
// validation failures are recorded on result.
func (e *Engine) pushCharge(ctx context.Context, runID int64, chargeID string, result *PushResult) (bool, error) {
	// The charge may have been pulled or redecided since the queue was read
	charge, err := e.store.GetCharge(ctx, chargeID)
	if err != nil {
		return false, fmt.Errorf("failed to reload charge %s: %w", chargeID, err)
	}
	if charge.Status != model.StatusPendingPush {
		e.logger.Debug("Skipping charge no longer pending", "charge_id", chargeID, "status", charge.Status)
		result.Skipped++
		return false, nil
	}

	if err := validator.ValidateCharge(charge); err != nil {
		e.logger.Warn("Refusing to push invalid charge", "charge_id", chargeID, "error", err)
		result.Failures = append(result.Failures, PushFailure{ChargeID: chargeID, Reason: err.Error()})
		return false, nil
	}

	update := ledger.CategoryUpdate{CategoryID: charge.CategoryID, Splits: charge.Splits}
	start := time.Now()
	callErr := e.ledger.UpdateTransactionCategory(ctx, chargeID, update)
	e.logAPICall(ctx, runID, chargeID, "UpdateTransactionCategory", update, callErr, time.Since(start))
	if callErr != nil {
		e.logger.Error("Failed to push charge", "charge_id", chargeID, "error", callErr)
		result.Failures = append(result.Failures, PushFailure{
			ChargeID: chargeID,
			Reason:   fmt.Sprintf("%v: %v", ErrUpstream, callErr),
		})
		return false, nil
	}

	if _, err := e.store.MarkPushed(ctx, chargeID); err != nil {
		return false, fmt.Errorf("failed to mark %s pushed: %w", chargeID, err)
	}
	e.logger.Info("Pushed charge", "charge_id", chargeID, "payee", charge.Payee, "splits", len(charge.Splits))
	return true, nil
}

// describe builds the dry-run report without touching either side
func (e *Engine) describe(ctx context.Context, pending []model.Charge) ([]PushDiff, error) {
	cats, err := e.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	name := func(id string) string {
		if id == "" {
			return "(uncategorized)"
		}
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	diffs := make([]PushDiff, 0, len(pending))
	for _, c := range pending {
		to := name(c.CategoryID)
		if c.IsSplit() {
			parts := make([]string, len(c.Splits))
			for i, s := range c.Splits {
				parts[i] = fmt.Sprintf("%s %s", name(s.CategoryID), s.Amount)
			}
			to = "split: " + strings.Join(parts, ", ")
		}
		diffs = append(diffs, PushDiff{
			ChargeID: c.ID,
			Payee:    c.Payee,
			Date:     c.Date,
			Amount:   c.Amount,
			From:     name(c.RemoteCategoryID),
			To:       to,
		})
	}
	return diffs, nil
}

func pushCounts(r *PushResult) storage.RunCounts {
	return storage.RunCounts{
		Fetched: r.Pending,
		Written: r.Pushed,
		Failed:  r.Failed(),
	}
}
