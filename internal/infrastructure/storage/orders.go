package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// UpsertOrders inserts or refreshes orders keyed by ID.
// Orders that carry items have their item list replaced.
func (s *Storage) UpsertOrders(ctx context.Context, batch []model.Order) (int, error) {
	written := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		written, err = upsertOrders(ctx, tx, batch, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func upsertOrders(ctx context.Context, q queryer, batch []model.Order, now time.Time) (int, error) {
	written := 0
	for _, o := range batch {
		if o.ID == "" {
			return 0, fmt.Errorf("order %d in batch has no id", written)
		}
		fetchedAt := o.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO orders (id, order_date, total, fetched_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				order_date = excluded.order_date,
				total = excluded.total,
				fetched_at = excluded.fetched_at
		`, o.ID, formatDate(o.Date), int64(o.Total), formatTime(fetchedAt))
		if err != nil {
			return 0, fmt.Errorf("failed to upsert order %s: %w", o.ID, err)
		}
		if len(o.Items) > 0 {
			if err := replaceOrderItems(ctx, q, o.ID, o.Items); err != nil {
				return 0, err
			}
		}
		written++
	}
	return written, nil
}

// UpsertOrderItems replaces the item list of an existing order.
func (s *Storage) UpsertOrderItems(ctx context.Context, orderID string, items []model.OrderItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, orderID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("order %s: %w", orderID, model.ErrNotFound)
		}
		return replaceOrderItems(ctx, tx, orderID, items)
	})
}

// GetOrder retrieves an order with its items
func (s *Storage) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	orders, err := queryOrders(ctx, s.db, `
		SELECT id, order_date, total, fetched_at FROM orders WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order %s: %w", id, model.ErrNotFound)
	}
	return &orders[0], nil
}

// FindCandidateOrders returns orders whose magnitude is within the tolerance
// of the reference amount and whose date is within the window, nearest date
// first, then nearest amount, then ID.
func (s *Storage) FindCandidateOrders(ctx context.Context, q model.CandidateQuery) ([]model.Order, error) {
	ref := q.ReferenceAmount.Abs()
	tol := q.AmountTolerance.Abs()
	refDate := formatDate(q.ReferenceDate)

	return queryOrders(ctx, s.db, `
		SELECT id, order_date, total, fetched_at
		FROM orders
		WHERE order_date BETWEEN ? AND ?
		  AND ABS(total) BETWEEN ? AND ?
		ORDER BY ABS(julianday(order_date) - julianday(?)) ASC,
		         ABS(ABS(total) - ?) ASC,
		         id ASC
	`,
		formatDate(q.ReferenceDate.AddDate(0, 0, -q.WindowDays)),
		formatDate(q.ReferenceDate.AddDate(0, 0, q.WindowDays)),
		int64(ref-tol), int64(ref+tol),
		refDate, int64(ref),
	)
}

// ListOrdersBetween returns orders dated within [from, to], by date then ID
func (s *Storage) ListOrdersBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	return queryOrders(ctx, s.db, `
		SELECT id, order_date, total, fetched_at
		FROM orders
		WHERE order_date BETWEEN ? AND ?
		ORDER BY order_date ASC, id ASC
	`, formatDate(from), formatDate(to))
}

func replaceOrderItems(ctx context.Context, q queryer, orderID string, items []model.OrderItem) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("failed to clear items of order %s: %w", orderID, err)
	}
	for i, item := range items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, description, unit_amount, quantity)
			VALUES (?, ?, ?, ?, ?)
		`, orderID, i, item.Description, int64(item.UnitAmount), qty)
		if err != nil {
			return fmt.Errorf("failed to insert item %d of order %s: %w", i, orderID, err)
		}
	}
	return nil
}

func queryOrders(ctx context.Context, q queryer, query string, args ...any) ([]model.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var date, fetchedAt string
		var total int64
		if err := rows.Scan(&o.ID, &date, &total, &fetchedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		o.Total = money.Amount(total)
		if o.Date, err = parseDate(date); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if o.FetchedAt, err = parseTime(fetchedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range orders {
		items, err := loadOrderItems(ctx, q, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func loadOrderItems(ctx context.Context, q queryer, orderID string) ([]model.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT description, unit_amount, quantity
		FROM order_items
		WHERE order_id = ?
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of order %s: %w", orderID, err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		var unit int64
		if err := rows.Scan(&item.Description, &unit, &item.Quantity); err != nil {
			return nil, err
		}
		item.UnitAmount = money.Amount(unit)
		items = append(items, item)
	}
	return items, rows.Err()
}
