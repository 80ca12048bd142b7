package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// AppendCategorization adds a history record. It reports false when an
// identical record already exists; existing records are never changed.
func (s *Storage) AppendCategorization(ctx context.Context, rec model.CategorizationRecord) (bool, error) {
	return appendCategorization(ctx, s.db, rec)
}

// ListCategorizations returns the full history in recording order
func (s *Storage) ListCategorizations(ctx context.Context) ([]model.CategorizationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, description, category_id, category_name, charge_id, order_id, recorded_at
		FROM categorization_records
		ORDER BY recorded_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categorizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.CategorizationRecord
	for rows.Next() {
		var rec model.CategorizationRecord
		var kind, recordedAt string
		if err := rows.Scan(&rec.ID, &kind, &rec.Description, &rec.CategoryID, &rec.CategoryName,
			&rec.ChargeID, &rec.OrderID, &recordedAt); err != nil {
			return nil, err
		}
		rec.Kind = model.RecordKind(kind)
		if rec.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// UpsertCategories refreshes the ledger category list
func (s *Storage) UpsertCategories(ctx context.Context, cats []model.Category) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return upsertCategories(ctx, tx, cats, s.now())
	})
}

// ListCategories returns categories ordered by group then name
func (s *Storage) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, group_name, hidden, deleted
		FROM categories
		ORDER BY group_name ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		var hidden, deleted int
		if err := rows.Scan(&c.ID, &c.Name, &c.Group, &hidden, &deleted); err != nil {
			return nil, err
		}
		c.Hidden = hidden != 0
		c.Deleted = deleted != 0
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func upsertCategories(ctx context.Context, q queryer, cats []model.Category, now time.Time) error {
	for _, c := range cats {
		_, err := q.ExecContext(ctx, `
			INSERT INTO categories (id, name, group_name, hidden, deleted, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				group_name = excluded.group_name,
				hidden = excluded.hidden,
				deleted = excluded.deleted,
				updated_at = excluded.updated_at
		`, c.ID, c.Name, c.Group, boolToInt(c.Hidden), boolToInt(c.Deleted), formatTime(now))
		if err != nil {
			return fmt.Errorf("failed to upsert category %s: %w", c.ID, err)
		}
	}
	return nil
}

func appendCategorization(ctx context.Context, q queryer, rec model.CategorizationRecord) (bool, error) {
	if rec.Kind != model.KindPayee && rec.Kind != model.KindItem {
		return false, fmt.Errorf("unknown categorization kind %q", rec.Kind)
	}
	if rec.Description == "" || rec.CategoryID == "" {
		return false, fmt.Errorf("categorization record needs a description and a category")
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO categorization_records
		(kind, description, category_id, category_name, charge_id, order_id, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, string(rec.Kind), rec.Description, rec.CategoryID, rec.CategoryName,
		rec.ChargeID, rec.OrderID, formatTime(rec.RecordedAt))
	if err != nil {
		return false, fmt.Errorf("failed to append categorization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
