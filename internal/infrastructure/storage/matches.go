package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// RecordMatch stores a single link, replacing any link of the same charge.
func (s *Storage) RecordMatch(ctx context.Context, link model.MatchLink) error {
	return insertMatch(ctx, s.db, link)
}

// ClearMatch removes the link of a charge, if any.
func (s *Storage) ClearMatch(ctx context.Context, chargeID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM match_links WHERE charge_id = ?`, chargeID); err != nil {
		return fmt.Errorf("failed to clear match of %s: %w", chargeID, err)
	}
	return nil
}

// ReplaceMatches swaps the whole link set in one transaction.
// Readers see either the previous set or the new one.
func (s *Storage) ReplaceMatches(ctx context.Context, links []model.MatchLink) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM match_links`); err != nil {
			return fmt.Errorf("failed to clear matches: %w", err)
		}
		for _, link := range links {
			if err := insertMatch(ctx, tx, link); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListMatches returns all links ordered by charge ID
func (s *Storage) ListMatches(ctx context.Context) ([]model.MatchLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT charge_id, order_id, tier, duplicate_candidate, matched_at
		FROM match_links
		ORDER BY charge_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []model.MatchLink
	for rows.Next() {
		link, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// MatchForCharge returns the link of a charge or ErrNotFound
func (s *Storage) MatchForCharge(ctx context.Context, chargeID string) (*model.MatchLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT charge_id, order_id, tier, duplicate_candidate, matched_at
		FROM match_links
		WHERE charge_id = ?
	`, chargeID)
	link, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match for %s: %w", chargeID, model.ErrNotFound)
	}
	return link, err
}

func insertMatch(ctx context.Context, q queryer, link model.MatchLink) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO match_links (charge_id, order_id, tier, duplicate_candidate, matched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(charge_id) DO UPDATE SET
			order_id = excluded.order_id,
			tier = excluded.tier,
			duplicate_candidate = excluded.duplicate_candidate,
			matched_at = excluded.matched_at
	`, link.ChargeID, link.OrderID, string(link.Tier), boolToInt(link.DuplicateCandidate), formatTime(link.MatchedAt))
	if err != nil {
		return fmt.Errorf("failed to record match %s -> %s: %w", link.ChargeID, link.OrderID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(sc scanner) (*model.MatchLink, error) {
	var link model.MatchLink
	var tier, matchedAt string
	var dup int
	if err := sc.Scan(&link.ChargeID, &link.OrderID, &tier, &dup, &matchedAt); err != nil {
		return nil, err
	}
	link.Tier = model.Tier(tier)
	link.DuplicateCandidate = dup != 0
	t, err := parseTime(matchedAt)
	if err != nil {
		return nil, err
	}
	link.MatchedAt = t
	return &link, nil
}
