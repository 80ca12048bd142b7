// Package matcher links opaque merchant charges to the orders they paid for.
//
// Matching runs in two deterministic stages over uncategorized charges whose
// payee passes the injected merchant predicate:
//   - Strict: amount within 10 minor units, date within 7 days
//   - Extended: same amount tolerance, date within 24 days
//
// A stage only links when exactly one candidate survives its filter; several
// candidates are never guessed between. After all charges are processed, any
// order claimed by more than one link has every such link flagged as a
// duplicate candidate.
//
// Example usage:
//
//	isAmazon, _ := matcher.PayeePatterns(`amazon`, `amzn`)
//	m := matcher.NewMatcher(matcher.DefaultConfig(), store, isAmazon, logger)
//	result, err := m.Run(ctx)
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// Matcher matches ledger charges with cached orders
type Matcher struct {
	config     Config
	store      Store
	isMerchant PayeePredicate
	logger     *slog.Logger
	now        func() time.Time
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config, store Store, isMerchant PayeePredicate, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		config:     config,
		store:      store,
		isMerchant: isMerchant,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the clock used to stamp links.
func (m *Matcher) WithClock(now func() time.Time) *Matcher {
	m.now = now
	return m
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config {
	return m.config
}

// Run computes a fresh link set and swaps it into the store in one transaction.
func (m *Matcher) Run(ctx context.Context) (*Result, error) {
	result, err := m.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.store.ReplaceMatches(ctx, result.Links); err != nil {
		return nil, fmt.Errorf("failed to store matches: %w", err)
	}

	m.logger.Info("Matching complete",
		"considered", result.Considered,
		"strict", result.Count(model.TierStrict),
		"extended", result.Count(model.TierExtended),
		"unmatched", len(result.Unmatched),
		"ambiguous", len(result.Ambiguous),
		"duplicates", result.Duplicates(),
		"combos", len(result.Combos),
	)
	return result, nil
}

// Compute matches every qualifying charge without writing anything.
func (m *Matcher) Compute(ctx context.Context) (*Result, error) {
	if err := m.config.Validate(); err != nil {
		return nil, err
	}

	charges, err := m.store.ListCharges(ctx, model.ChargeFilter{Uncategorized: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}

	qualifying := m.qualifying(charges)
	result := &Result{
		Considered: len(qualifying),
		Links:      []model.MatchLink{},
		Unmatched:  []string{},
		Ambiguous:  []Ambiguity{},
		Combos:     []Combo{},
	}
	matchedAt := m.now().UTC()

	var unmatched []model.Charge
	for _, charge := range qualifying {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tier, candidates, err := m.matchCharge(ctx, charge)
		if err != nil {
			return nil, err
		}

		switch {
		case tier != model.TierNone:
			result.Links = append(result.Links, model.MatchLink{
				ChargeID:  charge.ID,
				OrderID:   candidates[0].ID,
				Tier:      tier,
				MatchedAt: matchedAt,
			})
			m.logger.Debug("Matched charge",
				"charge_id", charge.ID,
				"order_id", candidates[0].ID,
				"tier", tier)
		case len(candidates) > 1:
			ids := make([]string, len(candidates))
			for i, o := range candidates {
				ids[i] = o.ID
			}
			result.Ambiguous = append(result.Ambiguous, Ambiguity{ChargeID: charge.ID, OrderIDs: ids})
			result.Unmatched = append(result.Unmatched, charge.ID)
			m.logger.Debug("Ambiguous charge", "charge_id", charge.ID, "candidates", len(ids))
		default:
			result.Unmatched = append(result.Unmatched, charge.ID)
			unmatched = append(unmatched, charge)
		}
	}

	flagDuplicates(result.Links)

	if m.config.MaxComboSize >= 2 && len(unmatched) >= 2 {
		combos, err := m.findCombos(ctx, unmatched, result.Links)
		if err != nil {
			return nil, err
		}
		result.Combos = combos
	}

	return result, nil
}

// qualifying filters and orders charges for a deterministic pass.
func (m *Matcher) qualifying(charges []model.Charge) []model.Charge {
	out := make([]model.Charge, 0, len(charges))
	for _, c := range charges {
		if c.IsCategorized() || c.Amount == 0 {
			continue
		}
		if m.isMerchant != nil && !m.isMerchant(c.Payee) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// matchCharge runs both stages for one charge. It returns the tier reached and the
// candidates of the last stage queried.
func (m *Matcher) matchCharge(ctx context.Context, charge model.Charge) (model.Tier, []model.Order, error) {
	stages := []struct {
		tier   model.Tier
		window int
	}{
		{model.TierStrict, m.config.StrictWindow},
		{model.TierExtended, m.config.ExtendedWindow},
	}

	var candidates []model.Order
	for _, stage := range stages {
		var err error
		candidates, err = m.store.FindCandidateOrders(ctx, model.CandidateQuery{
			ReferenceDate:   charge.Date,
			ReferenceAmount: charge.Amount.Abs(),
			AmountTolerance: m.config.AmountTolerance,
			WindowDays:      stage.window,
		})
		if err != nil {
			return model.TierNone, nil, fmt.Errorf("failed to find candidates for charge %s: %w", charge.ID, err)
		}
		if len(candidates) == 1 {
			return stage.tier, candidates, nil
		}
	}
	return model.TierNone, candidates, nil
}

// flagDuplicates marks every link whose order is claimed more than once.
func flagDuplicates(links []model.MatchLink) {
	claims := make(map[string]int, len(links))
	for _, l := range links {
		claims[l.OrderID]++
	}
	for i := range links {
		links[i].DuplicateCandidate = claims[links[i].OrderID] > 1
	}
}

// dayDistance returns the absolute whole-day distance between two calendar dates.
func dayDistance(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
