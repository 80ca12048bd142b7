// Package validator checks categorization data at the write boundary.
//
// Nothing reaches the store or the ledger unless its splits sum exactly to the
// parent charge and the charge is either singly categorized or split, never both.
// Inconsistent data is rejected, never coerced.
package validator

import (
	"fmt"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// SplitValidation contains the result of validating a charge's splits.
type SplitValidation struct {
	// Valid is true if the splits sum exactly to the charge amount
	Valid bool

	// SplitSum is the sum of all split amounts
	SplitSum money.Amount

	// Expected is the parent charge amount
	Expected money.Amount

	// Difference is SplitSum minus Expected
	Difference money.Amount

	// Reason explains why validation failed (empty if valid)
	Reason string
}

// ValidateSplits checks that split amounts sum exactly to the charge amount.
// A split list must have at least two entries.
func ValidateSplits(chargeAmount money.Amount, splits []model.Split) *SplitValidation {
	var sum money.Amount
	for _, s := range splits {
		sum += s.Amount
	}

	result := &SplitValidation{
		SplitSum:   sum,
		Expected:   chargeAmount,
		Difference: sum - chargeAmount,
	}

	switch {
	case len(splits) < 2:
		result.Reason = fmt.Sprintf("a split charge needs at least 2 splits, got %d", len(splits))
	case result.Difference < 0:
		result.Reason = fmt.Sprintf("splits (%s) are less than charge (%s) by %s",
			sum, chargeAmount, result.Difference.Abs())
	case result.Difference > 0:
		result.Reason = fmt.Sprintf("splits (%s) exceed charge (%s) by %s",
			sum, chargeAmount, result.Difference)
	default:
		result.Valid = true
	}

	return result
}

// ValidateRemoteCharge checks a charge pulled from the ledger: category xor
// splits, and an exact split sum. Ledger splits may be uncategorized, as
// transfer legs are.
func ValidateRemoteCharge(c *model.Charge) error {
	if c.CategoryID != "" && c.IsSplit() {
		return fmt.Errorf("charge %s: %w", c.ID, model.ErrCategoryAndSplits)
	}
	if !c.IsSplit() {
		return nil
	}
	if v := ValidateSplits(c.Amount, c.Splits); !v.Valid {
		return fmt.Errorf("charge %s: %w: %s", c.ID, model.ErrInvalidSplits, v.Reason)
	}
	return nil
}

// ValidateCharge checks a locally decided charge before it is stored or
// pushed. On top of ValidateRemoteCharge, every split needs a category.
// Uncategorized charges are valid.
func ValidateCharge(c *model.Charge) error {
	if err := ValidateRemoteCharge(c); err != nil {
		return err
	}
	for i, sp := range c.Splits {
		if sp.CategoryID == "" {
			return fmt.Errorf("charge %s: %w: split %d has no category", c.ID, model.ErrInvalidSplits, i)
		}
	}
	return nil
}
