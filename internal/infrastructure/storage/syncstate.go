package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// GetSyncState returns the checkpoint of a source or ErrNotFound before the first pull.
func (s *Storage) GetSyncState(ctx context.Context, source model.Source) (*model.SyncState, error) {
	var state model.SyncState
	var src, lastSync string
	err := s.db.QueryRowContext(ctx, `
		SELECT source, last_sync, cursor, record_count
		FROM sync_state
		WHERE source = ?
	`, string(source)).Scan(&src, &lastSync, &state.Cursor, &state.RecordCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync state for %s: %w", source, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	state.Source = model.Source(src)
	if state.LastSync, err = parseTime(lastSync); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveSyncState writes the checkpoint of a source
func (s *Storage) SaveSyncState(ctx context.Context, state model.SyncState) error {
	return saveSyncState(ctx, s.db, state, s.now())
}

func saveSyncState(ctx context.Context, q queryer, state model.SyncState, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sync_state (source, last_sync, cursor, record_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			last_sync = excluded.last_sync,
			cursor = excluded.cursor,
			record_count = excluded.record_count,
			updated_at = excluded.updated_at
	`, string(state.Source), formatTime(state.LastSync), state.Cursor, state.RecordCount, formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to save sync state for %s: %w", state.Source, err)
	}
	return nil
}
