package matcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// Config holds matcher configuration
type Config struct {
	AmountTolerance money.Amount // Default: 10 minor units
	StrictWindow    int          // Days either side of the charge date (default: 7)
	ExtendedWindow  int          // Days either side of the charge date (default: 24)
	MaxComboSize    int          // Largest charge group reported as a combo (default: 4, 0 disables)
}

// DefaultConfig returns the standard tolerances
func DefaultConfig() Config {
	return Config{
		AmountTolerance: 10,
		StrictWindow:    7,
		ExtendedWindow:  24,
		MaxComboSize:    4,
	}
}

// Validate rejects configs that cannot produce a meaningful two-stage match.
func (c Config) Validate() error {
	if c.AmountTolerance < 0 {
		return fmt.Errorf("amount tolerance must not be negative")
	}
	if c.StrictWindow < 0 || c.ExtendedWindow < c.StrictWindow {
		return fmt.Errorf("windows must satisfy 0 <= strict (%d) <= extended (%d)", c.StrictWindow, c.ExtendedWindow)
	}
	return nil
}

// PayeePredicate decides whether a payee belongs to the order source's merchant.
type PayeePredicate func(payee string) bool

// PayeePatterns builds a case-insensitive predicate from regular expressions.
func PayeePatterns(patterns ...string) (PayeePredicate, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one payee pattern is required")
	}
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid payee pattern %q: %w", p, err)
		}
		res = append(res, re)
	}
	return func(payee string) bool {
		payee = strings.TrimSpace(payee)
		for _, re := range res {
			if re.MatchString(payee) {
				return true
			}
		}
		return false
	}, nil
}

// Store is the read/write surface the matcher needs from the local store.
type Store interface {
	ListCharges(ctx context.Context, filter model.ChargeFilter) ([]model.Charge, error)
	FindCandidateOrders(ctx context.Context, q model.CandidateQuery) ([]model.Order, error)
	ListOrdersBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	ReplaceMatches(ctx context.Context, links []model.MatchLink) error
}

// Ambiguity is a charge with several equally valid candidate orders.
type Ambiguity struct {
	ChargeID string   `json:"charge_id"`
	OrderIDs []string `json:"order_ids"`
}

// Combo is a group of unmatched charges that together pay for one order.
// Combos are reported for review and never turned into links.
type Combo struct {
	OrderID   string       `json:"order_id"`
	ChargeIDs []string     `json:"charge_ids"`
	Sum       money.Amount `json:"sum"`
}

// Result contains the outcome of one matching run
type Result struct {
	Considered int               `json:"considered"`
	Links      []model.MatchLink `json:"links"`
	Unmatched  []string          `json:"unmatched"`
	Ambiguous  []Ambiguity       `json:"ambiguous"`
	Combos     []Combo           `json:"combos"`
}

// Count returns the number of links at the given tier.
func (r *Result) Count(tier model.Tier) int {
	n := 0
	for _, l := range r.Links {
		if l.Tier == tier {
			n++
		}
	}
	return n
}

// Duplicates returns the number of links flagged as duplicate candidates.
func (r *Result) Duplicates() int {
	n := 0
	for _, l := range r.Links {
		if l.DuplicateCandidate {
			n++
		}
	}
	return n
}
