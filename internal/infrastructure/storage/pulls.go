package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// LedgerPull is everything one completed ledger pull writes.
type LedgerPull struct {
	Charges    []model.Charge
	Categories []model.Category
	// History holds categorizations found on the ledger itself.
	History []model.CategorizationRecord
	State   model.SyncState
}

// LedgerPullResult reports what ApplyLedgerPull wrote.
type LedgerPullResult struct {
	Charges         UpsertResult
	HistoryAppended int
}

// ApplyLedgerPull writes charges, categories, history and the ledger
// checkpoint in one transaction. On any error nothing is written.
func (s *Storage) ApplyLedgerPull(ctx context.Context, pull LedgerPull) (*LedgerPullResult, error) {
	if err := validateRemoteBatch(pull.Charges); err != nil {
		return nil, err
	}

	now := s.now()
	result := &LedgerPullResult{}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertCharges(ctx, tx, pull.Charges, now, &result.Charges); err != nil {
			return err
		}
		if err := upsertCategories(ctx, tx, pull.Categories, now); err != nil {
			return err
		}
		for _, rec := range pull.History {
			added, err := appendCategorization(ctx, tx, rec)
			if err != nil {
				return fmt.Errorf("failed to append history for %s: %w", rec.ChargeID, err)
			}
			if added {
				result.HistoryAppended++
			}
		}
		return saveSyncState(ctx, tx, pull.State, now)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyOrderPull writes fetched orders and, when state is not nil, the order
// checkpoint in one transaction.
func (s *Storage) ApplyOrderPull(ctx context.Context, orders []model.Order, state *model.SyncState) (int, error) {
	now := s.now()
	written := 0

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if written, err = upsertOrders(ctx, tx, orders, now); err != nil {
			return err
		}
		if state == nil {
			return nil
		}
		return saveSyncState(ctx, tx, *state, now)
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
