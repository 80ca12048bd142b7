// Package money provides an exact minor-unit amount type.
//
// Amounts are signed integers of the smallest currency unit (cents for USD).
// Outflows are negative. Conversion to and from decimal text goes through
// shopspring/decimal so no value ever passes through a float.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Exponent is the number of decimal places of the minor unit.
const Exponent = 2

// milliunitsPerUnit converts between ledger milliunits and minor units.
const milliunitsPerUnit = 10

// Amount is a signed amount in minor currency units.
type Amount int64

// Abs returns the magnitude of a.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return -a
}

// Mul multiplies a by an integer factor.
func (a Amount) Mul(n int64) Amount {
	return Amount(int64(a) * n)
}

// Sign returns -1, 0 or 1.
func (a Amount) Sign() int {
	switch {
	case a < 0:
		return -1
	case a > 0:
		return 1
	}
	return 0
}

// Decimal returns a as a decimal in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Exponent)
}

// String formats a in major units with two decimals, e.g. "-45.67".
func (a Amount) String() string {
	return a.Decimal().StringFixed(Exponent)
}

// Sum adds up amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total += a
	}
	return total
}

// Parse reads a decimal major-unit string such as "45.67" or "-3".
// Values with more precision than the minor unit are rejected.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts a major-unit decimal into minor units.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(Exponent)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has sub-minor-unit precision", d.String())
	}
	return Amount(minor.IntPart()), nil
}

// FromMilliunits converts ledger milliunits (1/1000 of a major unit) to minor units.
func FromMilliunits(milli int64) (Amount, error) {
	if milli%milliunitsPerUnit != 0 {
		return 0, fmt.Errorf("milliunit amount %d is not a whole minor unit", milli)
	}
	return Amount(milli / milliunitsPerUnit), nil
}

// Milliunits converts a to ledger milliunits.
func (a Amount) Milliunits() int64 {
	return int64(a) * milliunitsPerUnit
}
