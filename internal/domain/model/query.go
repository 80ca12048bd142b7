package model

import (
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// CandidateQuery selects orders near a charge.
// Amounts are compared by magnitude; the window is inclusive in whole days.
type CandidateQuery struct {
	ReferenceDate   time.Time
	ReferenceAmount money.Amount
	AmountTolerance money.Amount
	WindowDays      int
}

// ChargeFilter narrows ListCharges. Zero values mean "any".
type ChargeFilter struct {
	Status        SyncStatus
	Uncategorized bool
	Conflict      bool
	Since         time.Time
	Limit         int
	Offset        int
}
