// Package model holds the entities shared by the store, the matcher and the
// sync engine.
package model

import (
	"errors"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// DateLayout is the calendar-day layout used for charge and order dates.
const DateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when a keyed lookup has no row.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSplits is returned when split amounts do not sum to the parent amount
	// or a split list has fewer than two entries.
	ErrInvalidSplits = errors.New("invalid splits")

	// ErrCategoryAndSplits is returned when a charge carries both a category and splits.
	ErrCategoryAndSplits = errors.New("charge has both a category and splits")
)

// SyncStatus tracks whether a charge's local categorization has reached the ledger.
type SyncStatus string

const (
	StatusSynced          SyncStatus = "synced"
	StatusLocallyModified SyncStatus = "locally-modified"
	StatusPendingPush     SyncStatus = "pending-push"
)

// Valid reports whether s is one of the known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case StatusSynced, StatusLocallyModified, StatusPendingPush:
		return true
	}
	return false
}

// HasLocalDecision reports whether the charge carries an uncommitted local decision.
func (s SyncStatus) HasLocalDecision() bool {
	return s == StatusLocallyModified || s == StatusPendingPush
}

// Charge mirrors one remote ledger transaction.
type Charge struct {
	ID               string       `json:"id"`
	Payee            string       `json:"payee"`
	Memo             string       `json:"memo,omitempty"`
	Amount           money.Amount `json:"amount"`
	Date             time.Time    `json:"date"`
	Approved         bool         `json:"approved"`
	CategoryID       string       `json:"category_id,omitempty"`
	RemoteCategoryID string       `json:"remote_category_id,omitempty"`
	Splits           []Split      `json:"splits,omitempty"`
	Status           SyncStatus   `json:"status"`
	ModifiedAt       time.Time    `json:"modified_at"`
	// Conflict is set when the ledger dropped a category that was already
	// synced. The local category is kept until the conflict is resolved.
	Conflict bool `json:"conflict,omitempty"`
}

// IsSplit reports whether the charge is categorized through splits.
func (c *Charge) IsSplit() bool {
	return len(c.Splits) > 0
}

// IsCategorized reports whether the charge has a single category or splits.
func (c *Charge) IsCategorized() bool {
	return c.CategoryID != "" || c.IsSplit()
}

// Split is one categorized portion of a charge.
type Split struct {
	ID         string       `json:"id"`
	Amount     money.Amount `json:"amount"`
	CategoryID string       `json:"category_id"`
	Memo       string       `json:"memo,omitempty"`
}

// Order is a purchase scraped from the order-history source.
type Order struct {
	ID        string       `json:"id"`
	Date      time.Time    `json:"date"`
	Total     money.Amount `json:"total"`
	Items     []OrderItem  `json:"items"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	Description string       `json:"description"`
	UnitAmount  money.Amount `json:"unit_amount"`
	Quantity    int          `json:"quantity"`
}

// LineTotal returns unit amount times quantity. A zero quantity counts as one.
func (i OrderItem) LineTotal() money.Amount {
	q := i.Quantity
	if q <= 0 {
		q = 1
	}
	return i.UnitAmount.Mul(int64(q))
}

// Tier is the confidence of a match link.
type Tier string

const (
	TierStrict   Tier = "strict"
	TierExtended Tier = "extended"
	TierNone     Tier = "none"
)

// MatchLink relates a charge to the order it most probably paid for.
// Links are derived and are always recomputed, never merged.
type MatchLink struct {
	ChargeID           string    `json:"charge_id"`
	OrderID            string    `json:"order_id"`
	Tier               Tier      `json:"tier"`
	DuplicateCandidate bool      `json:"duplicate_candidate"`
	MatchedAt          time.Time `json:"matched_at"`
}

// RecordKind distinguishes payee-level from item-level categorization history.
type RecordKind string

const (
	KindPayee RecordKind = "payee"
	KindItem  RecordKind = "item"
)

// CategorizationRecord is one append-only entry of the categorization history.
type CategorizationRecord struct {
	ID           int64      `json:"id"`
	Kind         RecordKind `json:"kind"`
	Description  string     `json:"description"`
	CategoryID   string     `json:"category_id"`
	CategoryName string     `json:"category_name,omitempty"`
	ChargeID     string     `json:"charge_id,omitempty"`
	OrderID      string     `json:"order_id,omitempty"`
	RecordedAt   time.Time  `json:"recorded_at"`
}

// Source names an upstream the sync engine pulls from.
type Source string

const (
	SourceLedger Source = "ledger"
	SourceOrders Source = "orders"
)

// SyncState is the checkpoint of the last fully successful pull of a source.
type SyncState struct {
	Source      Source    `json:"source"`
	LastSync    time.Time `json:"last_sync"`
	Cursor      string    `json:"cursor,omitempty"`
	RecordCount int       `json:"record_count"`
}

// Category is a ledger category.
type Category struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Group   string `json:"group,omitempty"`
	Hidden  bool   `json:"hidden"`
	Deleted bool   `json:"deleted"`
}
