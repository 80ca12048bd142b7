// Package allocator distributes a charge across order items.
//
// The pro-rata allocator splits a total across items proportionally to their
// line totals. This absorbs discounts, coupons, points and tax in one ratio:
//
//	item_cost = total * item_line_total / sum(item_line_totals)
//
// All arithmetic is in integer minor units. Remainders from flooring are handed
// out one unit at a time by largest fractional part, so the allocations always
// sum to the total exactly.
package allocator

import (
	"errors"
	"sort"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// Item represents an item to allocate costs to.
type Item struct {
	Name      string
	ListPrice money.Amount
}

// Allocation represents the allocated cost for a single item.
type Allocation struct {
	Name          string
	ListPrice     money.Amount
	AllocatedCost money.Amount
}

// Result contains the allocation results.
type Result struct {
	Allocations    []Allocation
	TotalAllocated money.Amount
}

// Allocate distributes total across items proportionally to their list prices.
// The sign of total is carried onto every allocation.
// Returns an error if items is empty or any list price is negative.
func Allocate(items []Item, total money.Amount) (*Result, error) {
	if len(items) == 0 {
		return nil, errors.New("no items to allocate")
	}

	var totalListPrice int64
	for _, item := range items {
		if item.ListPrice < 0 {
			return nil, errors.New("item list price cannot be negative")
		}
		totalListPrice += int64(item.ListPrice)
	}

	allocations := make([]Allocation, len(items))
	for i, item := range items {
		allocations[i] = Allocation{Name: item.Name, ListPrice: item.ListPrice}
	}

	magnitude := int64(total.Abs())
	sign := int64(1)
	if total < 0 {
		sign = -1
	}

	if totalListPrice == 0 {
		// Free items only: everything goes to the first item.
		allocations[0].AllocatedCost = total
		return &Result{Allocations: allocations, TotalAllocated: total}, nil
	}

	type share struct {
		idx       int
		remainder int64
	}
	shares := make([]share, len(items))
	var allocated int64
	for i, item := range items {
		num := magnitude * int64(item.ListPrice)
		base := num / totalListPrice
		allocations[i].AllocatedCost = money.Amount(base)
		allocated += base
		shares[i] = share{idx: i, remainder: num % totalListPrice}
	}

	// Hand out the leftover units by largest remainder, then by list price, then by position.
	sort.SliceStable(shares, func(a, b int) bool {
		if shares[a].remainder != shares[b].remainder {
			return shares[a].remainder > shares[b].remainder
		}
		return items[shares[a].idx].ListPrice > items[shares[b].idx].ListPrice
	})
	for left, k := magnitude-allocated, 0; left > 0; left, k = left-1, k+1 {
		allocations[shares[k%len(shares)].idx].AllocatedCost++
	}

	for i := range allocations {
		allocations[i].AllocatedCost = allocations[i].AllocatedCost.Mul(sign)
	}

	return &Result{
		Allocations:    allocations,
		TotalAllocated: total,
	}, nil
}
