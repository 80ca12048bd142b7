// Package learner derives category suggestions from the categorization history.
//
// The index is a read-only projection over the append-only log. Rebuild
// recomputes it from the full log into a fresh structure and swaps it in
// atomically, so readers never observe a half-built index. Suggestions are
// ranked most-frequent first, ties broken by most-recent use.
package learner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
)

// DefaultFuzzyRatio is the largest edit-distance ratio accepted for a fuzzy lookup.
const DefaultFuzzyRatio = 0.25

// Source supplies the categorization log.
type Source interface {
	ListCategorizations(ctx context.Context) ([]model.CategorizationRecord, error)
}

// Suggestion is one ranked category for a description.
type Suggestion struct {
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	Count        int       `json:"count"`
	LastUsed     time.Time `json:"last_used"`
	Fuzzy        bool      `json:"fuzzy,omitempty"`
	MatchedKey   string    `json:"matched_key,omitempty"`
}

// Index maps normalized descriptions to ranked suggestions.
type Index struct {
	entries map[string][]Suggestion
	keys    []string
	records int
	builtAt time.Time
}

// BuildIndex builds an index from a snapshot of the log.
func BuildIndex(records []model.CategorizationRecord, builtAt time.Time) *Index {
	type tally struct {
		count    int
		lastUsed time.Time
		name     string
	}
	byKey := make(map[string]map[string]*tally)

	for _, r := range records {
		key := Normalize(r.Description)
		if key == "" || r.CategoryID == "" {
			continue
		}
		cats, ok := byKey[key]
		if !ok {
			cats = make(map[string]*tally)
			byKey[key] = cats
		}
		t, ok := cats[r.CategoryID]
		if !ok {
			t = &tally{}
			cats[r.CategoryID] = t
		}
		t.count++
		if !r.RecordedAt.Before(t.lastUsed) {
			t.lastUsed = r.RecordedAt
			if r.CategoryName != "" {
				t.name = r.CategoryName
			}
		}
	}

	ix := &Index{
		entries: make(map[string][]Suggestion, len(byKey)),
		keys:    make([]string, 0, len(byKey)),
		records: len(records),
		builtAt: builtAt,
	}
	for key, cats := range byKey {
		list := make([]Suggestion, 0, len(cats))
		for id, t := range cats {
			list = append(list, Suggestion{
				CategoryID:   id,
				CategoryName: t.name,
				Count:        t.count,
				LastUsed:     t.lastUsed,
			})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Count != list[j].Count {
				return list[i].Count > list[j].Count
			}
			if !list[i].LastUsed.Equal(list[j].LastUsed) {
				return list[i].LastUsed.After(list[j].LastUsed)
			}
			return list[i].CategoryID < list[j].CategoryID
		})
		ix.entries[key] = list
		ix.keys = append(ix.keys, key)
	}
	sort.Strings(ix.keys)

	return ix
}

// Lookup returns exact-key suggestions for a description.
func (ix *Index) Lookup(description string) []Suggestion {
	if ix == nil {
		return nil
	}
	list := ix.entries[Normalize(description)]
	out := make([]Suggestion, len(list))
	copy(out, list)
	return out
}

// Size returns the number of distinct descriptions in the index.
func (ix *Index) Size() int {
	if ix == nil {
		return 0
	}
	return len(ix.keys)
}

// Records returns the number of log records the index was built from.
func (ix *Index) Records() int {
	if ix == nil {
		return 0
	}
	return ix.records
}

// BuiltAt returns when the index was built.
func (ix *Index) BuiltAt() time.Time {
	if ix == nil {
		return time.Time{}
	}
	return ix.builtAt
}

// nearest returns the closest key within ratio, ties broken by key order.
func (ix *Index) nearest(key string, ratio float64) (string, bool) {
	best, bestDist := "", -1
	for _, k := range ix.keys {
		// levenshtein counts runes, so the ratio must too
		longest := max(utf8.RuneCountInString(k), utf8.RuneCountInString(key))
		if longest == 0 {
			continue
		}
		dist := levenshtein.ComputeDistance(key, k)
		if float64(dist)/float64(longest) > ratio {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = k, dist
		}
	}
	return best, bestDist >= 0
}

// Learner serves suggestions from the most recently built index.
type Learner struct {
	source     Source
	index      atomic.Pointer[Index]
	fuzzyRatio float64
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a learner. Call Rebuild before the first Suggest.
func New(source Source, logger *slog.Logger) *Learner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		source:     source,
		fuzzyRatio: DefaultFuzzyRatio,
		logger:     logger,
		now:        time.Now,
	}
}

// SetFuzzyRatio changes the fuzzy lookup threshold; zero disables fuzzy lookups.
func (l *Learner) SetFuzzyRatio(ratio float64) {
	l.fuzzyRatio = ratio
}

// Rebuild recomputes the index from the full log and swaps it in.
// On error the previous index stays in place.
func (l *Learner) Rebuild(ctx context.Context) (*Index, error) {
	records, err := l.source.ListCategorizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read categorization log: %w", err)
	}
	ix := BuildIndex(records, l.now())
	l.index.Store(ix)

	l.logger.Debug("Rebuilt category index", "records", ix.Records(), "descriptions", ix.Size())
	return ix, nil
}

// Index returns the current index, or nil before the first Rebuild.
func (l *Learner) Index() *Index {
	return l.index.Load()
}

// Suggest returns ranked categories for a description. Without an exact match
// it falls back to the nearest known description and marks the results fuzzy.
func (l *Learner) Suggest(description string) []Suggestion {
	ix := l.index.Load()
	if ix == nil {
		return nil
	}
	if list := ix.Lookup(description); len(list) > 0 {
		return list
	}
	if l.fuzzyRatio <= 0 {
		return nil
	}

	key, ok := ix.nearest(Normalize(description), l.fuzzyRatio)
	if !ok {
		return nil
	}
	list := ix.Lookup(key)
	for i := range list {
		list[i].Fuzzy = true
		list[i].MatchedKey = key
	}
	return list
}

// Top returns the best suggestion for a description.
func (l *Learner) Top(description string) (Suggestion, bool) {
	list := l.Suggest(description)
	if len(list) == 0 {
		return Suggestion{}, false
	}
	return list[0], true
}

// Normalize lower-cases, trims and collapses internal whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
