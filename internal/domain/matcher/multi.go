package matcher

import (
	"context"
	"fmt"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// findCombos looks for groups of 2..MaxComboSize unmatched charges that together
// pay for an order no link has claimed. Orders are visited in store order and
// each charge joins at most one combo, so the report is deterministic.
func (m *Matcher) findCombos(ctx context.Context, unmatched []model.Charge, links []model.MatchLink) ([]Combo, error) {
	from, to := unmatched[0].Date, unmatched[0].Date
	for _, c := range unmatched[1:] {
		if c.Date.Before(from) {
			from = c.Date
		}
		if c.Date.After(to) {
			to = c.Date
		}
	}
	window := m.config.ExtendedWindow
	orders, err := m.store.ListOrdersBetween(ctx, from.AddDate(0, 0, -window), to.AddDate(0, 0, window))
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for combos: %w", err)
	}

	claimed := make(map[string]bool, len(links))
	for _, l := range links {
		claimed[l.OrderID] = true
	}

	used := make(map[string]bool)
	combos := []Combo{}
	for _, order := range orders {
		if claimed[order.ID] || order.Total <= 0 {
			continue
		}

		var pool []model.Charge
		for _, c := range unmatched {
			if used[c.ID] || dayDistance(c.Date, order.Date) > window {
				continue
			}
			if c.Amount.Abs() > order.Total+m.config.AmountTolerance {
				continue
			}
			pool = append(pool, c)
		}

		group := m.findGroup(pool, order.Total)
		if group == nil {
			continue
		}

		combo := Combo{OrderID: order.ID}
		for _, c := range group {
			used[c.ID] = true
			combo.ChargeIDs = append(combo.ChargeIDs, c.ID)
			combo.Sum += c.Amount.Abs()
		}
		combos = append(combos, combo)
		m.logger.Debug("Found multi-charge combo",
			"order_id", order.ID,
			"charges", len(combo.ChargeIDs),
			"sum", combo.Sum.String())
	}

	return combos, nil
}

// findGroup returns the first group of charges, smallest size first and then in
// pool order, whose magnitudes sum to target within tolerance.
func (m *Matcher) findGroup(pool []model.Charge, target money.Amount) []model.Charge {
	for size := 2; size <= m.config.MaxComboSize && size <= len(pool); size++ {
		idx := make([]int, size)
		if m.searchGroup(pool, target, idx, 0, 0, 0) {
			group := make([]model.Charge, size)
			for i, j := range idx {
				group[i] = pool[j]
			}
			return group
		}
	}
	return nil
}

func (m *Matcher) searchGroup(pool []model.Charge, target money.Amount, idx []int, depth, start int, sum money.Amount) bool {
	if depth == len(idx) {
		return (sum - target).Abs() <= m.config.AmountTolerance
	}
	for i := start; i <= len(pool)-(len(idx)-depth); i++ {
		next := sum + pool[i].Amount.Abs()
		if next > target+m.config.AmountTolerance {
			continue
		}
		idx[depth] = i
		if m.searchGroup(pool, target, idx, depth+1, i+1, next) {
			return true
		}
	}
	return false
}
