package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/validator"
)

// ErrEmptyDecision is returned when a decision carries neither a category nor splits.
var ErrEmptyDecision = errors.New("decision needs a category or splits")

const chargeColumns = `id, payee, memo, amount, charge_date, approved, category_id,
	remote_category_id, status, modified_at, conflict`

// UpsertCharges inserts new charges and merges existing ones by local status.
// The whole batch is validated first and applied in one transaction.
func (s *Storage) UpsertCharges(ctx context.Context, batch []model.Charge) (*UpsertResult, error) {
	if err := validateRemoteBatch(batch); err != nil {
		return nil, err
	}

	result := &UpsertResult{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertCharges(ctx, tx, batch, s.now(), result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateRemoteBatch(batch []model.Charge) error {
	for i := range batch {
		if batch[i].ID == "" {
			return fmt.Errorf("charge %d in batch has no id", i)
		}
		if err := validator.ValidateRemoteCharge(&batch[i]); err != nil {
			return fmt.Errorf("rejected pulled batch: %w", err)
		}
	}
	return nil
}

func upsertCharges(ctx context.Context, tx *sql.Tx, batch []model.Charge, now time.Time, result *UpsertResult) error {
	for _, remote := range batch {
		local, err := getCharge(ctx, tx, remote.ID)
		if errors.Is(err, model.ErrNotFound) {
			c := remote
			c.Status = model.StatusSynced
			c.RemoteCategoryID = remote.CategoryID
			c.Conflict = false
			c.ModifiedAt = now
			if err := insertCharge(ctx, tx, c, now); err != nil {
				return err
			}
			if err := replaceSplits(ctx, tx, c.ID, c.Splits); err != nil {
				return err
			}
			result.Inserted++
			continue
		}
		if err != nil {
			return err
		}

		merged, changed := mergeRemote(*local, remote)
		if merged.Conflict {
			result.Conflicts = append(result.Conflicts, merged.ID)
		}
		if !changed {
			continue
		}
		if merged.Status == model.StatusSynced {
			merged.ModifiedAt = now
		}
		if err := updateCharge(ctx, tx, merged, now); err != nil {
			return err
		}
		if merged.Status == model.StatusSynced {
			if err := replaceSplits(ctx, tx, merged.ID, merged.Splits); err != nil {
				return err
			}
		}
		result.Updated++

		if merged.IsSplit() && !validator.ValidateSplits(merged.Amount, merged.Splits).Valid {
			result.Inconsistent = append(result.Inconsistent, merged.ID)
		}
	}
	return nil
}

// GetCharge retrieves a charge with its splits
func (s *Storage) GetCharge(ctx context.Context, id string) (*model.Charge, error) {
	return getCharge(ctx, s.db, id)
}

// ListCharges returns charges ordered by date then ID
func (s *Storage) ListCharges(ctx context.Context, filter model.ChargeFilter) ([]model.Charge, error) {
	var where []string
	var args []any

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Uncategorized {
		where = append(where, "category_id = '' AND NOT EXISTS (SELECT 1 FROM splits WHERE splits.charge_id = charges.id)")
	}
	if filter.Conflict {
		where = append(where, "conflict = 1")
	}
	if !filter.Since.IsZero() {
		where = append(where, "charge_date >= ?")
		args = append(args, formatDate(filter.Since))
	}

	query := "SELECT " + chargeColumns + " FROM charges"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY charge_date ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	return queryCharges(ctx, s.db, query, args...)
}

// PendingPush returns pending-push charges, oldest modification first
func (s *Storage) PendingPush(ctx context.Context) ([]model.Charge, error) {
	query := "SELECT " + chargeColumns + ` FROM charges
		WHERE status = ?
		ORDER BY modified_at ASC, id ASC`
	return queryCharges(ctx, s.db, query, string(model.StatusPendingPush))
}

// MarkPushed moves the given charges from pending-push to synced in one
// transaction. Charges in any other status are left alone, so a retried
// push never resurrects a decision made after the confirmed one.
func (s *Storage) MarkPushed(ctx context.Context, ids ...string) (int, error) {
	marked := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `
				UPDATE charges
				SET status = ?, remote_category_id = category_id
				WHERE id = ? AND status = ?
			`, string(model.StatusSynced), id, string(model.StatusPendingPush))
			if err != nil {
				return fmt.Errorf("failed to mark charge %s pushed: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			marked += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// ApplyDecision writes a review decision: the category or splits, the new
// status and the matching history entries, all in one transaction.
func (s *Storage) ApplyDecision(ctx context.Context, d Decision) (*model.Charge, error) {
	if d.CategoryID != "" && len(d.Splits) > 0 {
		return nil, fmt.Errorf("charge %s: %w", d.ChargeID, model.ErrCategoryAndSplits)
	}
	if d.CategoryID == "" && len(d.Splits) == 0 {
		return nil, fmt.Errorf("charge %s: %w", d.ChargeID, ErrEmptyDecision)
	}

	now := s.now()
	var out *model.Charge

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := getCharge(ctx, tx, d.ChargeID)
		if err != nil {
			return err
		}

		c.CategoryID = d.CategoryID
		c.Splits = make([]model.Split, len(d.Splits))
		for i, sp := range d.Splits {
			if sp.ID == "" {
				sp.ID = uuid.NewString()
			}
			c.Splits[i] = sp
		}
		if err := validator.ValidateCharge(c); err != nil {
			return err
		}

		c.Status = model.StatusLocallyModified
		c.Conflict = false
		if d.Stage {
			c.Status = model.StatusPendingPush
		}
		c.ModifiedAt = now

		if err := updateCharge(ctx, tx, *c, now); err != nil {
			return err
		}
		if err := replaceSplits(ctx, tx, c.ID, c.Splits); err != nil {
			return err
		}

		if d.CategoryID != "" {
			if _, err := appendCategorization(ctx, tx, model.CategorizationRecord{
				Kind:         model.KindPayee,
				Description:  c.Payee,
				CategoryID:   d.CategoryID,
				CategoryName: d.CategoryName,
				ChargeID:     c.ID,
				RecordedAt:   now,
			}); err != nil {
				return err
			}
		}
		for _, item := range d.Items {
			if _, err := appendCategorization(ctx, tx, model.CategorizationRecord{
				Kind:         model.KindItem,
				Description:  item.Description,
				CategoryID:   item.CategoryID,
				CategoryName: item.CategoryName,
				ChargeID:     c.ID,
				OrderID:      item.OrderID,
				RecordedAt:   now,
			}); err != nil {
				return err
			}
		}

		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StageForPush moves locally-modified charges to pending-push.
func (s *Storage) StageForPush(ctx context.Context, ids ...string) (int, error) {
	staged := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `
				UPDATE charges SET status = ?
				WHERE id = ? AND status = ?
			`, string(model.StatusPendingPush), id, string(model.StatusLocallyModified))
			if err != nil {
				return fmt.Errorf("failed to stage charge %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			staged += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return staged, nil
}

// DiscardDecisions drops the local decision of each charge and returns it to
// the category last seen on the ledger. Charges in conflict accept the ledger's
// state the same way. Other charges are left alone. History records stay.
func (s *Storage) DiscardDecisions(ctx context.Context, ids ...string) (int, error) {
	now := s.now()
	discarded := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			c, err := getCharge(ctx, tx, id)
			if err != nil {
				return err
			}
			if !c.Status.HasLocalDecision() && !c.Conflict {
				continue
			}

			c.CategoryID = c.RemoteCategoryID
			c.Splits = nil
			c.Status = model.StatusSynced
			c.Conflict = false
			c.ModifiedAt = now
			if err := updateCharge(ctx, tx, *c, now); err != nil {
				return err
			}
			if err := replaceSplits(ctx, tx, c.ID, nil); err != nil {
				return err
			}
			discarded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return discarded, nil
}

// RequeueConflicts moves charges in conflict to pending-push so the next push
// writes their local category back to the ledger.
func (s *Storage) RequeueConflicts(ctx context.Context, ids ...string) (int, error) {
	now := formatTime(s.now())
	requeued := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `
				UPDATE charges SET status = ?, conflict = 0, modified_at = ?
				WHERE id = ? AND status = ? AND conflict = 1
			`, string(model.StatusPendingPush), now, id, string(model.StatusSynced))
			if err != nil {
				return fmt.Errorf("failed to requeue charge %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			requeued += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return requeued, nil
}

func insertCharge(ctx context.Context, q queryer, c model.Charge, pulledAt time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO charges
		(id, payee, memo, amount, charge_date, approved, category_id,
		 remote_category_id, status, modified_at, pulled_at, conflict)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID, c.Payee, c.Memo, int64(c.Amount), formatDate(c.Date), boolToInt(c.Approved),
		c.CategoryID, c.RemoteCategoryID, string(c.Status), formatTime(c.ModifiedAt), formatTime(pulledAt),
		boolToInt(c.Conflict),
	)
	if err != nil {
		return fmt.Errorf("failed to insert charge %s: %w", c.ID, err)
	}
	return nil
}

func updateCharge(ctx context.Context, q queryer, c model.Charge, pulledAt time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE charges
		SET payee = ?, memo = ?, amount = ?, charge_date = ?, approved = ?,
		    category_id = ?, remote_category_id = ?, status = ?, modified_at = ?, pulled_at = ?,
		    conflict = ?
		WHERE id = ?
	`,
		c.Payee, c.Memo, int64(c.Amount), formatDate(c.Date), boolToInt(c.Approved),
		c.CategoryID, c.RemoteCategoryID, string(c.Status), formatTime(c.ModifiedAt), formatTime(pulledAt),
		boolToInt(c.Conflict), c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update charge %s: %w", c.ID, err)
	}
	return nil
}

func replaceSplits(ctx context.Context, q queryer, chargeID string, splits []model.Split) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM splits WHERE charge_id = ?`, chargeID); err != nil {
		return fmt.Errorf("failed to clear splits of %s: %w", chargeID, err)
	}
	for i, sp := range splits {
		id := sp.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO splits (id, charge_id, position, amount, category_id, memo)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, chargeID, i, int64(sp.Amount), sp.CategoryID, sp.Memo)
		if err != nil {
			return fmt.Errorf("failed to insert split %d of %s: %w", i, chargeID, err)
		}
	}
	return nil
}

func getCharge(ctx context.Context, q queryer, id string) (*model.Charge, error) {
	charges, err := queryCharges(ctx, q, "SELECT "+chargeColumns+" FROM charges WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(charges) == 0 {
		return nil, fmt.Errorf("charge %s: %w", id, model.ErrNotFound)
	}
	return &charges[0], nil
}

// queryCharges reads all rows before loading splits; the pool has a single connection.
func queryCharges(ctx context.Context, q queryer, query string, args ...any) ([]model.Charge, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query charges: %w", err)
	}

	var charges []model.Charge
	for rows.Next() {
		var c model.Charge
		var amount int64
		var date, status, modifiedAt string
		var approved, conflict int
		if err := rows.Scan(&c.ID, &c.Payee, &c.Memo, &amount, &date, &approved,
			&c.CategoryID, &c.RemoteCategoryID, &status, &modifiedAt, &conflict); err != nil {
			_ = rows.Close()
			return nil, err
		}
		c.Amount = money.Amount(amount)
		c.Approved = approved != 0
		c.Conflict = conflict != 0
		c.Status = model.SyncStatus(status)
		if c.Date, err = parseDate(date); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if c.ModifiedAt, err = parseTime(modifiedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		charges = append(charges, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range charges {
		splits, err := loadSplits(ctx, q, charges[i].ID)
		if err != nil {
			return nil, err
		}
		charges[i].Splits = splits
	}
	return charges, nil
}

func loadSplits(ctx context.Context, q queryer, chargeID string) ([]model.Split, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, amount, category_id, memo
		FROM splits
		WHERE charge_id = ?
		ORDER BY position ASC
	`, chargeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load splits of %s: %w", chargeID, err)
	}
	defer func() { _ = rows.Close() }()

	var splits []model.Split
	for rows.Next() {
		var sp model.Split
		var amount int64
		if err := rows.Scan(&sp.ID, &amount, &sp.CategoryID, &sp.Memo); err != nil {
			return nil, err
		}
		sp.Amount = money.Amount(amount)
		splits = append(splits, sp)
	}
	return splits, rows.Err()
}
