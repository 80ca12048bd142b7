// Package splitter turns a matched order into a categorization for its charge.
//
// Items are grouped by their chosen category and the charge amount is spread
// across the groups pro-rata to their line totals. The resulting splits always
// sum to the charge amount exactly. When every item lands in the same category
// the result is a single-category decision instead of splits.
package splitter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/allocator"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/validator"
)

// ItemCategory pairs an order item with the category chosen for it.
type ItemCategory struct {
	Item         model.OrderItem
	CategoryID   string
	CategoryName string
}

// Plan is the categorization built for a charge.
// Exactly one of CategoryID or Splits is set.
type Plan struct {
	CategoryID string
	Memo       string
	Splits     []model.Split
}

// IsSplit reports whether the plan splits the charge.
func (p *Plan) IsSplit() bool {
	return len(p.Splits) > 0
}

type categoryGroup struct {
	categoryID   string
	categoryName string
	items        []model.OrderItem
	subtotal     money.Amount
}

// CreateSplits builds a plan for charge from categorized items.
//
// Returns:
//   - plan with CategoryID: every item shares one category
//   - plan with Splits: several categories, splits sum exactly to charge.Amount
//   - error: no items, an item without a category, or a zero charge
func CreateSplits(charge model.Charge, items []ItemCategory) (*Plan, error) {
	if len(items) == 0 {
		return nil, errors.New("no items to split")
	}
	if charge.Amount == 0 {
		return nil, fmt.Errorf("charge %s has no amount to split", charge.ID)
	}

	// Group in first-appearance order so output is stable
	var groups []*categoryGroup
	byID := make(map[string]*categoryGroup)
	for i, ic := range items {
		if ic.CategoryID == "" {
			return nil, fmt.Errorf("item %d (%s) has no category", i, ic.Item.Description)
		}
		g, ok := byID[ic.CategoryID]
		if !ok {
			g = &categoryGroup{categoryID: ic.CategoryID, categoryName: ic.CategoryName}
			byID[ic.CategoryID] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, ic.Item)
		g.subtotal += ic.Item.LineTotal()
	}

	if len(groups) == 1 {
		return &Plan{
			CategoryID: groups[0].categoryID,
			Memo:       groupNotes(groups[0]),
		}, nil
	}

	allocItems := make([]allocator.Item, len(groups))
	for i, g := range groups {
		allocItems[i] = allocator.Item{Name: g.categoryID, ListPrice: g.subtotal}
	}
	result, err := allocator.Allocate(allocItems, charge.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate charge %s: %w", charge.ID, err)
	}

	splits := make([]model.Split, len(groups))
	for i, g := range groups {
		splits[i] = model.Split{
			ID:         uuid.NewString(),
			Amount:     result.Allocations[i].AllocatedCost,
			CategoryID: g.categoryID,
			Memo:       groupNotes(g),
		}
	}

	if v := validator.ValidateSplits(charge.Amount, splits); !v.Valid {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidSplits, v.Reason)
	}

	return &Plan{Splits: splits}, nil
}

// groupNotes builds a split memo listing the group's items.
func groupNotes(g *categoryGroup) string {
	details := make([]string, 0, len(g.items))
	for _, item := range g.items {
		if item.Quantity > 1 {
			details = append(details, fmt.Sprintf("%s (x%d)", item.Description, item.Quantity))
		} else {
			details = append(details, item.Description)
		}
	}

	notes := strings.Join(details, ", ")
	if len(g.items) > 3 {
		notes = fmt.Sprintf("(%d items) %s", len(g.items), notes)
	}
	if g.categoryName != "" {
		notes = g.categoryName + ": " + notes
	}
	return notes
}
