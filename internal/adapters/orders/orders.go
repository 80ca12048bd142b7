// Package orders defines the capability the sync engine needs from an order
// history source.
package orders

import (
	"context"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// Source lists orders with their items.
type Source interface {
	// ListOrders returns the orders placed in year. Year 0 means the
	// source's own default window.
	ListOrders(ctx context.Context, year int) ([]model.Order, error)
}
