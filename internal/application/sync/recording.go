package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// Recording and audit trail helpers for the sync engine.
// Tracking failures are logged and never abort a run.

// startRun records the start of a run and returns its ID, or 0 when tracking failed
func (e *Engine) startRun(ctx context.Context, run storage.SyncRun) int64 {
	run.StartedAt = e.now()
	runID, err := e.store.StartSyncRun(ctx, run)
	if err != nil {
		e.logger.Warn("Failed to start sync run tracking", "operation", run.Operation, "error", err)
		return 0
	}
	return runID
}

// completeRun records the outcome of a run
func (e *Engine) completeRun(ctx context.Context, runID int64, counts storage.RunCounts, runErr error) {
	if runID == 0 {
		return
	}
	if err := e.store.CompleteSyncRun(ctx, runID, counts, runErr); err != nil {
		e.logger.Warn("Failed to complete sync run tracking", "run_id", runID, "error", err)
	}
}

// logAPICall logs a remote write for the audit trail
func (e *Engine) logAPICall(ctx context.Context, runID int64, chargeID, method string, request any, callErr error, duration time.Duration) {
	requestJSON, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		e.logger.Warn("Failed to marshal request for API log", "method", method, "error", marshalErr)
		requestJSON = []byte(fmt.Sprintf(`{"error": "failed to marshal: %v"}`, marshalErr))
	}

	errStr := ""
	if callErr != nil {
		errStr = callErr.Error()
	}

	call := &storage.APICall{
		RunID:       runID,
		ChargeID:    chargeID,
		Method:      method,
		RequestJSON: string(requestJSON),
		Error:       errStr,
		DurationMs:  duration.Milliseconds(),
	}
	if err := e.store.LogAPICall(ctx, call); err != nil {
		e.logger.Warn("Failed to log API call", "method", method, "error", err)
	}
}

func pullCounts(r *PullResult) storage.RunCounts {
	var counts storage.RunCounts
	for _, src := range []*SourceResult{r.Ledger, r.Orders} {
		if src == nil {
			continue
		}
		counts.Fetched += src.Fetched
		counts.Written += src.Inserted + src.Updated
	}
	return counts
}
