// Package review turns suggestions and matched orders into categorization
// decisions. It never decides on its own: every category either comes from
// the caller or is the learner's top suggestion the caller asked for.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/learner"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/splitter"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

var (
	// ErrNoMatch is returned when an item split is requested for an unmatched charge.
	ErrNoMatch = errors.New("charge has no matched order")

	// ErrNoSuggestion is returned when an item has neither an override nor a learned category.
	ErrNoSuggestion = errors.New("no category for item")

	// ErrUnknownCategory is returned for a category the ledger does not know.
	ErrUnknownCategory = errors.New("unknown category")
)

// Store is the part of the local store the review service uses.
type Store interface {
	GetCharge(ctx context.Context, id string) (*model.Charge, error)
	MatchForCharge(ctx context.Context, chargeID string) (*model.MatchLink, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ApplyDecision(ctx context.Context, d storage.Decision) (*model.Charge, error)
	StageForPush(ctx context.Context, ids ...string) (int, error)
	DiscardDecisions(ctx context.Context, ids ...string) (int, error)
	RequeueConflicts(ctx context.Context, ids ...string) (int, error)
}

// Service records review decisions and keeps the learner current.
type Service struct {
	store   Store
	learner *learner.Learner
	logger  *slog.Logger
}

// NewService creates a review service.
func NewService(store Store, l *learner.Learner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, learner: l, logger: logger}
}

// ItemSuggestion is one order item with its ranked categories.
type ItemSuggestion struct {
	Index       int                  `json:"index"`
	Item        model.OrderItem      `json:"item"`
	Suggestions []learner.Suggestion `json:"suggestions"`
}

// ChargeSuggestions is everything a reviewer needs to categorize one charge.
type ChargeSuggestions struct {
	Charge *model.Charge        `json:"charge"`
	Payee  []learner.Suggestion `json:"payee"`
	Match  *model.MatchLink     `json:"match,omitempty"`
	Order  *model.Order         `json:"order,omitempty"`
	Items  []ItemSuggestion     `json:"items,omitempty"`
}

// SplitRequest asks for a charge to be split by its matched order's items.
type SplitRequest struct {
	ChargeID  string
	// Overrides maps item index to category ID; other items use the top suggestion.
	Overrides map[int]string
	Stage     bool
}

// Decide records a caller-made decision and refreshes the learner.
func (s *Service) Decide(ctx context.Context, d storage.Decision) (*model.Charge, error) {
	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	if d.CategoryID != "" {
		name, err := resolve(names, d.CategoryID)
		if err != nil {
			return nil, err
		}
		if d.CategoryName == "" {
			d.CategoryName = name
		}
	}
	for _, sp := range d.Splits {
		if _, err := resolve(names, sp.CategoryID); err != nil {
			return nil, err
		}
	}
	for i := range d.Items {
		name, err := resolve(names, d.Items[i].CategoryID)
		if err != nil {
			return nil, err
		}
		if d.Items[i].CategoryName == "" {
			d.Items[i].CategoryName = name
		}
	}

	charge, err := s.store.ApplyDecision(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to apply decision for %s: %w", d.ChargeID, err)
	}

	s.logger.Info("Recorded decision",
		"charge_id", charge.ID,
		"category_id", charge.CategoryID,
		"splits", len(charge.Splits),
		"status", charge.Status,
	)
	s.rebuild(ctx)
	return charge, nil
}

// Suggestions gathers learned categories for a charge and, when it is matched,
// for each item of its order.
func (s *Service) Suggestions(ctx context.Context, chargeID string) (*ChargeSuggestions, error) {
	charge, err := s.store.GetCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	s.ensureIndex(ctx)

	out := &ChargeSuggestions{
		Charge: charge,
		Payee:  nonNil(s.learner.Suggest(charge.Payee)),
	}

	link, order, err := s.matchedOrder(ctx, chargeID)
	if errors.Is(err, ErrNoMatch) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	out.Match = link
	out.Order = order

	for i, item := range order.Items {
		out.Items = append(out.Items, ItemSuggestion{
			Index:       i,
			Item:        item,
			Suggestions: nonNil(s.learner.Suggest(item.Description)),
		})
	}
	return out, nil
}

// SplitByItems categorizes a matched charge from its order's items. Items
// without an override take the learner's top suggestion.
func (s *Service) SplitByItems(ctx context.Context, req SplitRequest) (*model.Charge, error) {
	charge, err := s.store.GetCharge(ctx, req.ChargeID)
	if err != nil {
		return nil, err
	}
	_, order, err := s.matchedOrder(ctx, req.ChargeID)
	if err != nil {
		return nil, err
	}
	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}
	s.ensureIndex(ctx)

	items := make([]splitter.ItemCategory, len(order.Items))
	decisions := make([]storage.ItemDecision, len(order.Items))
	for i, item := range order.Items {
		categoryID, ok := req.Overrides[i]
		if !ok {
			top, found := s.learner.Top(item.Description)
			if !found {
				return nil, fmt.Errorf("%w %d (%s)", ErrNoSuggestion, i, item.Description)
			}
			categoryID = top.CategoryID
		}
		name, err := resolve(names, categoryID)
		if err != nil {
			return nil, err
		}

		items[i] = splitter.ItemCategory{Item: item, CategoryID: categoryID, CategoryName: name}
		decisions[i] = storage.ItemDecision{
			OrderID:      order.ID,
			Description:  item.Description,
			CategoryID:   categoryID,
			CategoryName: name,
		}
	}

	plan, err := splitter.CreateSplits(*charge, items)
	if err != nil {
		return nil, err
	}

	return s.Decide(ctx, storage.Decision{
		ChargeID:   charge.ID,
		CategoryID: plan.CategoryID,
		Splits:     plan.Splits,
		Items:      decisions,
		Stage:      req.Stage,
	})
}

// Stage queues locally-modified charges for the next push.
func (s *Service) Stage(ctx context.Context, ids ...string) (int, error) {
	n, err := s.store.StageForPush(ctx, ids...)
	if err != nil {
		return 0, fmt.Errorf("failed to stage charges: %w", err)
	}
	s.logger.Info("Staged charges for push", "requested", len(ids), "staged", n)
	return n, nil
}

// Discard drops local decisions and restores the ledger's last known category.
// The categorization history is left as recorded, so the learner is unchanged.
func (s *Service) Discard(ctx context.Context, ids ...string) (int, error) {
	n, err := s.store.DiscardDecisions(ctx, ids...)
	if err != nil {
		return 0, fmt.Errorf("failed to discard decisions: %w", err)
	}
	s.logger.Info("Discarded local decisions", "requested", len(ids), "discarded", n)
	return n, nil
}

// Requeue stages conflicted charges so their local category is pushed again.
func (s *Service) Requeue(ctx context.Context, ids ...string) (int, error) {
	n, err := s.store.RequeueConflicts(ctx, ids...)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue conflicts: %w", err)
	}
	s.logger.Info("Requeued conflicted charges", "requested", len(ids), "requeued", n)
	return n, nil
}

func (s *Service) matchedOrder(ctx context.Context, chargeID string) (*model.MatchLink, *model.Order, error) {
	link, err := s.store.MatchForCharge(ctx, chargeID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil, fmt.Errorf("charge %s: %w", chargeID, ErrNoMatch)
	}
	if err != nil {
		return nil, nil, err
	}
	order, err := s.store.GetOrder(ctx, link.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load order %s: %w", link.OrderID, err)
	}
	return link, order, nil
}

func (s *Service) categoryNames(ctx context.Context) (map[string]string, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		if !c.Deleted {
			names[c.ID] = c.Name
		}
	}
	return names, nil
}

// resolve checks a category against the ledger's list. An empty list, as
// before the first pull, accepts anything.
func resolve(names map[string]string, categoryID string) (string, error) {
	if len(names) == 0 {
		return "", nil
	}
	name, ok := names[categoryID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCategory, categoryID)
	}
	return name, nil
}

func (s *Service) ensureIndex(ctx context.Context) {
	if s.learner.Index() == nil {
		s.rebuild(ctx)
	}
}

// rebuild refreshes the learner; a failure keeps the previous index.
func (s *Service) rebuild(ctx context.Context) {
	if _, err := s.learner.Rebuild(ctx); err != nil {
		s.logger.Warn("Failed to rebuild category index", "error", err)
	}
}

func nonNil(list []learner.Suggestion) []learner.Suggestion {
	if list == nil {
		return []learner.Suggestion{}
	}
	return list
}
