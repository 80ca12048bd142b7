package dto

import (
	"fmt"
	"strconv"

	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/money"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// ChargeListParams represents query parameters for listing charges.
type ChargeListParams struct {
	Status        string `json:"status"`
	Uncategorized bool   `json:"uncategorized"`
	Conflict      bool   `json:"conflict"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
}

// DefaultChargeListParams returns default values for charge list params.
func DefaultChargeListParams() ChargeListParams {
	return ChargeListParams{Limit: 50}
}

// Filter converts the params to a store filter.
func (p ChargeListParams) Filter() (model.ChargeFilter, error) {
	status := model.SyncStatus(p.Status)
	if status != "" && !status.Valid() {
		return model.ChargeFilter{}, fmt.Errorf("unknown status %q", p.Status)
	}
	if p.Limit < 0 || p.Offset < 0 {
		return model.ChargeFilter{}, fmt.Errorf("limit and offset must not be negative")
	}
	return model.ChargeFilter{
		Status:        status,
		Uncategorized: p.Uncategorized,
		Conflict:      p.Conflict,
		Limit:         p.Limit,
		Offset:        p.Offset,
	}, nil
}

// SplitRequest is one split of a decision. Amount is a decimal string in major units.
type SplitRequest struct {
	Amount     string `json:"amount"`
	CategoryID string `json:"category_id"`
	Memo       string `json:"memo,omitempty"`
}

// ItemDecisionRequest records the category chosen for one order item.
type ItemDecisionRequest struct {
	OrderID     string `json:"order_id"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
}

// DecisionRequest is the body of POST /api/charges/{id}/decision.
type DecisionRequest struct {
	CategoryID string                `json:"category_id,omitempty"`
	Splits     []SplitRequest        `json:"splits,omitempty"`
	Items      []ItemDecisionRequest `json:"items,omitempty"`
	Stage      bool                  `json:"stage"`
}

// ToDecision validates the request and converts it for the review service.
func (r DecisionRequest) ToDecision(chargeID string) (storage.Decision, error) {
	d := storage.Decision{ChargeID: chargeID, CategoryID: r.CategoryID, Stage: r.Stage}
	if r.CategoryID == "" && len(r.Splits) == 0 {
		return d, fmt.Errorf("either category_id or splits is required")
	}
	if r.CategoryID != "" && len(r.Splits) > 0 {
		return d, fmt.Errorf("category_id and splits are mutually exclusive")
	}

	for i, s := range r.Splits {
		amount, err := money.Parse(s.Amount)
		if err != nil {
			return d, fmt.Errorf("split %d: %w", i, err)
		}
		if s.CategoryID == "" {
			return d, fmt.Errorf("split %d: category_id is required", i)
		}
		d.Splits = append(d.Splits, model.Split{Amount: amount, CategoryID: s.CategoryID, Memo: s.Memo})
	}
	for i, item := range r.Items {
		if item.Description == "" || item.CategoryID == "" {
			return d, fmt.Errorf("item %d: description and category_id are required", i)
		}
		d.Items = append(d.Items, storage.ItemDecision{
			OrderID:     item.OrderID,
			Description: item.Description,
			CategoryID:  item.CategoryID,
		})
	}
	return d, nil
}

// SplitByItemsRequest is the body of POST /api/charges/{id}/split-by-items.
// Overrides maps an item index to a category ID.
type SplitByItemsRequest struct {
	Overrides map[string]string `json:"overrides,omitempty"`
	Stage     bool              `json:"stage"`
}

// OverrideIndexes converts the JSON object keys to item indexes.
func (r SplitByItemsRequest) OverrideIndexes() (map[int]string, error) {
	out := make(map[int]string, len(r.Overrides))
	for k, v := range r.Overrides {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("override key %q is not an item index", k)
		}
		out[i] = v
	}
	return out, nil
}

// StageRequest is the body of POST /api/charges/stage, /discard and /requeue.
type StageRequest struct {
	IDs []string `json:"ids"`
}
