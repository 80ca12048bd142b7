// Package ledger defines the capability the sync engine needs from a remote
// budgeting ledger. Amounts cross this boundary in store minor units; each
// adapter converts at its own edge.
package ledger

import (
	"context"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// Client is the remote ledger.
type Client interface {
	// ListTransactions returns one page of charges changed since req.Since.
	// A nil Since asks for the full history.
	ListTransactions(ctx context.Context, req ListRequest) (*Page, error)

	// ListCategories returns every ledger category.
	ListCategories(ctx context.Context) ([]model.Category, error)

	// UpdateTransactionCategory writes a single category or a split list to a charge.
	UpdateTransactionCategory(ctx context.Context, chargeID string, update CategoryUpdate) error
}

// ListRequest selects a page of transactions.
type ListRequest struct {
	Since *time.Time
	// Cursor asks for changes after a server knowledge marker. Adapters
	// ignore it when Since is set.
	Cursor    string
	PageToken string
}

// Page is one page of a transaction listing.
type Page struct {
	Charges []model.Charge
	// NextPageToken is empty on the last page.
	NextPageToken string
	// Cursor is the server knowledge marker to store after a complete pull.
	Cursor string
}

// CategoryUpdate is exactly one of a category or a split list.
type CategoryUpdate struct {
	CategoryID string        `json:"category_id,omitempty"`
	Splits     []model.Split `json:"splits,omitempty"`
}
