package learner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

type fakeSource struct {
	records []model.CategorizationRecord
	err     error
}

func (f *fakeSource) ListCategorizations(context.Context) ([]model.CategorizationRecord, error) {
	return f.records, f.err
}

func rec(desc, categoryID string, at time.Time) model.CategorizationRecord {
	return model.CategorizationRecord{Kind: model.KindItem, Description: desc, CategoryID: categoryID, RecordedAt: at}
}

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestLearner_RanksByCountThenRecency(t *testing.T) {
	// Arrange
	src := &fakeSource{records: []model.CategorizationRecord{
		rec("USB Cable", "electronics", t0),
		rec("usb cable", "electronics", t0.Add(time.Hour)),
		rec("USB  Cable ", "office", t0.Add(2*time.Hour)),
		rec("usb cable", "gifts", t0.Add(3*time.Hour)),
	}}
	l := New(src, nil)

	// Act
	_, err := l.Rebuild(context.Background())
	require.NoError(t, err)
	got := l.Suggest("  usb CABLE")

	// Assert
	require.Len(t, got, 3)
	assert.Equal(t, "electronics", got[0].CategoryID)
	assert.Equal(t, 2, got[0].Count)
	assert.Equal(t, "gifts", got[1].CategoryID, "tie on count goes to the most recent")
	assert.Equal(t, "office", got[2].CategoryID)
	assert.False(t, got[0].Fuzzy)
}

func TestLearner_FuzzyFallback(t *testing.T) {
	src := &fakeSource{records: []model.CategorizationRecord{
		rec("Clean Code: A Handbook", "books", t0),
	}}
	l := New(src, nil)
	_, err := l.Rebuild(context.Background())
	require.NoError(t, err)

	got := l.Suggest("Clean Code - A Handbook")
	require.Len(t, got, 1)
	assert.Equal(t, "books", got[0].CategoryID)
	assert.True(t, got[0].Fuzzy)
	assert.Equal(t, "clean code: a handbook", got[0].MatchedKey)

	assert.Empty(t, l.Suggest("Garden Hose"))

	l.SetFuzzyRatio(0)
	assert.Empty(t, l.Suggest("Clean Code - A Handbook"))
}

func TestLearner_FuzzyRatioCountsRunes(t *testing.T) {
	src := &fakeSource{records: []model.CategorizationRecord{
		rec("молоко", "groceries", t0),
	}}
	l := New(src, nil)
	_, err := l.Rebuild(context.Background())
	require.NoError(t, err)

	got := l.Suggest("молоки")
	require.Len(t, got, 1, "one edit in six letters is within the ratio")
	assert.True(t, got[0].Fuzzy)

	// Three edits in six letters; measured in bytes it would pass at 3/12
	assert.Empty(t, l.Suggest("малака"))
}

func TestLearner_RebuildSwapsIndex(t *testing.T) {
	src := &fakeSource{records: []model.CategorizationRecord{rec("milk", "groceries", t0)}}
	l := New(src, nil)

	assert.Nil(t, l.Suggest("milk"), "no index before the first rebuild")

	first, err := l.Rebuild(context.Background())
	require.NoError(t, err)

	src.records = append(src.records, rec("milk", "dairy", t0.Add(time.Hour)), rec("milk", "dairy", t0.Add(2*time.Hour)))
	_, err = l.Rebuild(context.Background())
	require.NoError(t, err)

	top, ok := l.Top("milk")
	require.True(t, ok)
	assert.Equal(t, "dairy", top.CategoryID)
	assert.Equal(t, "groceries", first.Lookup("milk")[0].CategoryID, "old index is untouched")

	src.err = errors.New("disk gone")
	_, err = l.Rebuild(context.Background())
	require.Error(t, err)
	top, _ = l.Top("milk")
	assert.Equal(t, "dairy", top.CategoryID, "failed rebuild keeps the previous index")
}

func TestBuildIndex_UsesLatestCategoryName(t *testing.T) {
	records := []model.CategorizationRecord{
		{Description: "Coffee", CategoryID: "c1", CategoryName: "Food", RecordedAt: t0},
		{Description: "coffee", CategoryID: "c1", CategoryName: "Coffee Shops", RecordedAt: t0.Add(time.Hour)},
		{Description: "", CategoryID: "c1", RecordedAt: t0},
		{Description: "tea", CategoryID: "", RecordedAt: t0},
	}

	ix := BuildIndex(records, t0)

	assert.Equal(t, 1, ix.Size())
	assert.Equal(t, 4, ix.Records())
	got := ix.Lookup("COFFEE")
	require.Len(t, got, 1)
	assert.Equal(t, "Coffee Shops", got[0].CategoryName)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "amazon.com", Normalize("  AMAZON.COM "))
	assert.Equal(t, "usb c cable", Normalize("USB\tC   Cable"))
	assert.Equal(t, "", Normalize("   "))
}
