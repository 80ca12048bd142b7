package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

const syncRunColumns = `id, run_uuid, operation, mode, scope, dry_run, started_at, completed_at,
	status, records_fetched, records_written, records_failed, error_message`

// StartSyncRun records the start of a sync run
func (s *Storage) StartSyncRun(ctx context.Context, run SyncRun) (int64, error) {
	if run.UUID == "" {
		run.UUID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (run_uuid, operation, mode, scope, dry_run, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.UUID, run.Operation, run.Mode, run.Scope, boolToInt(run.DryRun),
		formatTime(run.StartedAt), RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to start sync run: %w", err)
	}

	return result.LastInsertId()
}

// CompleteSyncRun records the completion of a sync run.
// A non-nil runErr marks the run failed; failed records mark it completed with errors.
func (s *Storage) CompleteSyncRun(ctx context.Context, runID int64, counts RunCounts, runErr error) error {
	status := RunStatusCompleted
	message := ""
	switch {
	case runErr != nil:
		status = RunStatusFailed
		message = runErr.Error()
	case counts.Failed > 0:
		status = RunStatusCompletedWithErrors
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET completed_at = ?,
		    status = ?,
		    records_fetched = ?,
		    records_written = ?,
		    records_failed = ?,
		    error_message = ?
		WHERE id = ?
	`, formatTime(s.now()), status, counts.Fetched, counts.Written, counts.Failed, message, runID)
	return err
}

// ListSyncRuns returns recent runs, newest first
func (s *Storage) ListSyncRuns(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+syncRunColumns+`
		FROM sync_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetSyncRun retrieves a run by ID
func (s *Storage) GetSyncRun(ctx context.Context, runID int64) (*SyncRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+syncRunColumns+` FROM sync_runs WHERE id = ?`, runID)
	run, err := scanSyncRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync run %d: %w", runID, model.ErrNotFound)
	}
	return run, err
}

func scanSyncRun(sc scanner) (*SyncRun, error) {
	var run SyncRun
	var dryRun int
	var startedAt string
	var completedAt sql.NullString
	err := sc.Scan(&run.ID, &run.UUID, &run.Operation, &run.Mode, &run.Scope, &dryRun,
		&startedAt, &completedAt, &run.Status, &run.RecordsFetched, &run.RecordsWritten,
		&run.RecordsFailed, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}
	run.DryRun = dryRun != 0
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// LogAPICall logs a remote write to the database
func (s *Storage) LogAPICall(ctx context.Context, call *APICall) error {
	if call.CalledAt.IsZero() {
		call.CalledAt = s.now()
	}
	var runID any
	if call.RunID != 0 {
		runID = call.RunID
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO api_calls
		(run_id, charge_id, method, request_json, response_json, error, duration_ms, called_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		call.ChargeID,
		call.Method,
		call.RequestJSON,
		call.ResponseJSON,
		call.Error,
		call.DurationMs,
		formatTime(call.CalledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to log api call: %w", err)
	}
	call.ID, err = result.LastInsertId()
	return err
}

// GetAPICallsByChargeID retrieves all API calls for a specific charge
func (s *Storage) GetAPICallsByChargeID(ctx context.Context, chargeID string) ([]APICall, error) {
	return s.queryAPICalls(ctx, `WHERE charge_id = ?`, chargeID)
}

// GetAPICallsByRunID retrieves all API calls for a specific sync run
func (s *Storage) GetAPICallsByRunID(ctx context.Context, runID int64) ([]APICall, error) {
	return s.queryAPICalls(ctx, `WHERE run_id = ?`, runID)
}

func (s *Storage) queryAPICalls(ctx context.Context, where string, arg any) ([]APICall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(run_id, 0), charge_id, method, request_json, response_json,
		       error, duration_ms, called_at
		FROM api_calls
		`+where+`
		ORDER BY called_at ASC, id ASC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var calls []APICall
	for rows.Next() {
		var call APICall
		var calledAt string
		err := rows.Scan(
			&call.ID,
			&call.RunID,
			&call.ChargeID,
			&call.Method,
			&call.RequestJSON,
			&call.ResponseJSON,
			&call.Error,
			&call.DurationMs,
			&calledAt,
		)
		if err != nil {
			return nil, err
		}
		if call.CalledAt, err = parseTime(calledAt); err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// Stats returns a snapshot of store contents
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[model.SyncStatus]int)}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM charges`, &stats.Charges},
		{`SELECT COUNT(*) FROM charges WHERE category_id = '' AND NOT EXISTS (SELECT 1 FROM splits WHERE splits.charge_id = charges.id)`, &stats.Uncategorized},
		{`SELECT COUNT(*) FROM charges WHERE conflict = 1`, &stats.Conflicts},
		{`SELECT COUNT(*) FROM orders`, &stats.Orders},
		{`SELECT COUNT(*) FROM match_links`, &stats.Links},
		{`SELECT COUNT(*) FROM match_links WHERE tier = 'strict'`, &stats.StrictLinks},
		{`SELECT COUNT(*) FROM match_links WHERE tier = 'extended'`, &stats.ExtendedLinks},
		{`SELECT COUNT(*) FROM match_links WHERE duplicate_candidate = 1`, &stats.DuplicateLinks},
		{`SELECT COUNT(*) FROM categorization_records`, &stats.Categorizations},
		{`SELECT COUNT(*) FROM categories WHERE deleted = 0`, &stats.Categories},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM charges GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count charges by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByStatus[model.SyncStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, src := range []model.Source{model.SourceLedger, model.SourceOrders} {
		state, err := s.GetSyncState(ctx, src)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		last := state.LastSync
		switch src {
		case model.SourceLedger:
			stats.LedgerLastSync = &last
		case model.SourceOrders:
			stats.OrdersLastSync = &last
		}
	}

	return stats, nil
}

// Duration returns the elapsed time of a completed run.
func (r SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
