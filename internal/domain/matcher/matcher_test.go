package matcher

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
)

// memStore is an in-memory Store with the same candidate ordering as the SQLite store.
type memStore struct {
	charges  []model.Charge
	orders   []model.Order
	replaced [][]model.MatchLink
}

func (s *memStore) ListCharges(_ context.Context, filter model.ChargeFilter) ([]model.Charge, error) {
	var out []model.Charge
	for _, c := range s.charges {
		if filter.Uncategorized && c.IsCategorized() {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) FindCandidateOrders(_ context.Context, q model.CandidateQuery) ([]model.Order, error) {
	var out []model.Order
	for _, o := range s.orders {
		if (o.Total.Abs() - q.ReferenceAmount).Abs() > q.AmountTolerance {
			continue
		}
		if dayDistance(o.Date, q.ReferenceDate) > q.WindowDays {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := dayDistance(out[i].Date, q.ReferenceDate), dayDistance(out[j].Date, q.ReferenceDate)
		if di != dj {
			return di < dj
		}
		ai, aj := (out[i].Total-q.ReferenceAmount).Abs(), (out[j].Total-q.ReferenceAmount).Abs()
		if ai != aj {
			return ai < aj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) ListOrdersBetween(_ context.Context, from, to time.Time) ([]model.Order, error) {
	var out []model.Order
	for _, o := range s.orders {
		if !o.Date.Before(from) && !o.Date.After(to) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) ReplaceMatches(_ context.Context, links []model.MatchLink) error {
	s.replaced = append(s.replaced, links)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func charge(id string, amount money.Amount, date time.Time) model.Charge {
	return model.Charge{ID: id, Payee: "AMAZON.COM", Amount: amount, Date: date, Status: model.StatusSynced}
}

func order(id string, total money.Amount, date time.Time) model.Order {
	return model.Order{ID: id, Total: total, Date: date}
}

func newTestMatcher(t *testing.T, store Store) *Matcher {
	t.Helper()
	isAmazon, err := PayeePatterns(`amazon`, `amzn`)
	require.NoError(t, err)
	fixed := day(2024, 4, 1)
	return NewMatcher(DefaultConfig(), store, isAmazon, nil).WithClock(func() time.Time { return fixed })
}

func TestMatcher_Tiers(t *testing.T) {
	tests := []struct {
		name      string
		orderDate time.Time
		wantTier  model.Tier
	}{
		{"5 days resolves strict", day(2024, 3, 5), model.TierStrict},
		{"7 days is still strict", day(2024, 3, 3), model.TierStrict},
		{"10 days resolves extended", day(2024, 3, 20), model.TierExtended},
		{"24 days is still extended", day(2024, 4, 3), model.TierExtended},
		{"30 days stays unmatched", day(2024, 2, 9), model.TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange: amount delta of 3 units
			store := &memStore{
				charges: []model.Charge{charge("c1", -1003, day(2024, 3, 10))},
				orders:  []model.Order{order("o1", 1000, tt.orderDate)},
			}

			// Act
			result, err := newTestMatcher(t, store).Compute(context.Background())

			// Assert
			require.NoError(t, err)
			if tt.wantTier == model.TierNone {
				assert.Empty(t, result.Links)
				assert.Equal(t, []string{"c1"}, result.Unmatched)
				return
			}
			require.Len(t, result.Links, 1)
			assert.Equal(t, tt.wantTier, result.Links[0].Tier)
			assert.Equal(t, "o1", result.Links[0].OrderID)
		})
	}
}

func TestMatcher_AmountTolerance(t *testing.T) {
	store := &memStore{
		charges: []model.Charge{
			charge("within", -1010, day(2024, 3, 10)),
			charge("outside", -5011, day(2024, 3, 10)),
		},
		orders: []model.Order{
			order("o1", 1000, day(2024, 3, 10)),
			order("o2", 5000, day(2024, 3, 10)),
		},
	}

	result, err := newTestMatcher(t, store).Compute(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Links, 1)
	assert.Equal(t, "within", result.Links[0].ChargeID)
	assert.Equal(t, []string{"outside"}, result.Unmatched)
}

func TestMatcher_Scenario_AmazonCharge(t *testing.T) {
	// Arrange
	store := &memStore{
		charges: []model.Charge{charge("t1", -4567, day(2024, 3, 10))},
		orders: []model.Order{{
			ID:    "O1",
			Total: 4567,
			Date:  day(2024, 3, 9),
			Items: []model.OrderItem{
				{Description: "Clean Code", UnitAmount: 2999, Quantity: 1},
				{Description: "USB Cable", UnitAmount: 1568, Quantity: 1},
			},
		}},
	}

	// Act
	result, err := newTestMatcher(t, store).Run(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, result.Links, 1)
	link := result.Links[0]
	assert.Equal(t, "t1", link.ChargeID)
	assert.Equal(t, "O1", link.OrderID)
	assert.Equal(t, model.TierStrict, link.Tier)
	assert.False(t, link.DuplicateCandidate)
	require.Len(t, store.replaced, 1, "Run swaps the link set into the store")
	assert.Equal(t, result.Links, store.replaced[0])
}

func TestMatcher_StrictAmbiguityDefersToExtended(t *testing.T) {
	// Two candidates inside the strict window: never guessed, and the wider
	// window cannot narrow them down either.
	store := &memStore{
		charges: []model.Charge{charge("c1", -2500, day(2024, 3, 10))},
		orders: []model.Order{
			order("o-near", 2500, day(2024, 3, 9)),
			order("o-far", 2500, day(2024, 3, 14)),
		},
	}

	result, err := newTestMatcher(t, store).Compute(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result.Links)
	require.Len(t, result.Ambiguous, 1)
	assert.Equal(t, "c1", result.Ambiguous[0].ChargeID)
	assert.Equal(t, []string{"o-near", "o-far"}, result.Ambiguous[0].OrderIDs, "candidates in date-distance order")
	assert.Equal(t, []string{"c1"}, result.Unmatched)
}

func TestMatcher_ExtendedAmbiguitySurfaced(t *testing.T) {
	store := &memStore{
		charges: []model.Charge{charge("c1", -2500, day(2024, 3, 10))},
		orders: []model.Order{
			order("o-a", 2500, day(2024, 3, 22)),
			order("o-b", 2502, day(2024, 2, 27)),
		},
	}

	result, err := newTestMatcher(t, store).Compute(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result.Links)
	require.Len(t, result.Ambiguous, 1)
	assert.Equal(t, []string{"o-a", "o-b"}, result.Ambiguous[0].OrderIDs)
}

func TestMatcher_DuplicateDetection(t *testing.T) {
	// Two distinct charges both uniquely match the same order
	store := &memStore{
		charges: []model.Charge{
			charge("c1", -3000, day(2024, 3, 10)),
			charge("c2", -3000, day(2024, 3, 12)),
			charge("c3", -9900, day(2024, 3, 12)),
		},
		orders: []model.Order{
			order("shared", 3000, day(2024, 3, 11)),
			order("solo", 9900, day(2024, 3, 12)),
		},
	}

	result, err := newTestMatcher(t, store).Compute(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Links, 3)
	for _, l := range result.Links {
		if l.OrderID == "shared" {
			assert.True(t, l.DuplicateCandidate, "link %s should be flagged", l.ChargeID)
		} else {
			assert.False(t, l.DuplicateCandidate)
		}
	}
	assert.Equal(t, 2, result.Duplicates())
}

func TestMatcher_Deterministic(t *testing.T) {
	store := &memStore{
		charges: []model.Charge{
			charge("c2", -3000, day(2024, 3, 12)),
			charge("c1", -3000, day(2024, 3, 10)),
			charge("c3", -1234, day(2024, 3, 1)),
			charge("c4", -777, day(2024, 3, 20)),
		},
		orders: []model.Order{
			order("o2", 1234, day(2024, 3, 15)),
			order("o1", 3000, day(2024, 3, 11)),
			order("o3", 780, day(2024, 3, 1)),
		},
	}
	m := newTestMatcher(t, store)

	first, err := m.Compute(context.Background())
	require.NoError(t, err)
	second, err := m.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "c3", first.Links[0].ChargeID, "charges are processed oldest first")
}

func TestMatcher_SkipsNonQualifyingCharges(t *testing.T) {
	categorized := charge("categorized", -1000, day(2024, 3, 10))
	categorized.CategoryID = "books"
	other := charge("other", -1000, day(2024, 3, 10))
	other.Payee = "Whole Foods"
	zero := charge("zero", 0, day(2024, 3, 10))

	store := &memStore{
		charges: []model.Charge{categorized, other, zero, charge("amzn", -1000, day(2024, 3, 10))},
		orders:  []model.Order{order("o1", 1000, day(2024, 3, 10))},
	}

	result, err := newTestMatcher(t, store).Compute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Considered)
	require.Len(t, result.Links, 1)
	assert.Equal(t, "amzn", result.Links[0].ChargeID)
}

func TestMatcher_RefundMatchesByMagnitude(t *testing.T) {
	store := &memStore{
		charges: []model.Charge{charge("refund", 1999, day(2024, 3, 10))},
		orders:  []model.Order{order("o1", 1999, day(2024, 3, 8))},
	}

	result, err := newTestMatcher(t, store).Compute(context.Background())

	require.NoError(t, err)
	require.Len(t, result.Links, 1)
	assert.Equal(t, model.TierStrict, result.Links[0].Tier)
}

func TestMatcher_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtendedWindow = 3
	m := NewMatcher(cfg, &memStore{}, nil, nil)

	_, err := m.Compute(context.Background())
	assert.Error(t, err)
}

func TestPayeePatterns(t *testing.T) {
	isAmazon, err := PayeePatterns(`amazon`, `^amzn mktp`)
	require.NoError(t, err)

	assert.True(t, isAmazon("AMAZON.COM"))
	assert.True(t, isAmazon("Amazon Prime*2K4"))
	assert.True(t, isAmazon("  AMZN Mktp US*1A2B3C"))
	assert.False(t, isAmazon("Whole Foods"))

	_, err = PayeePatterns()
	assert.Error(t, err)
	_, err = PayeePatterns(`(`)
	assert.Error(t, err)
}
