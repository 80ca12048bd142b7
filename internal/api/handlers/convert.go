package handlers

import (
	"time"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/application/review"
	syncengine "github.com/eshaffer321/itemize-reconcile/internal/application/sync"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/learner"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toChargeResponse(c model.Charge, link *model.MatchLink) dto.ChargeResponse {
	resp := dto.ChargeResponse{
		ID:               c.ID,
		Payee:            c.Payee,
		Memo:             c.Memo,
		Amount:           c.Amount.String(),
		Date:             c.Date.Format(model.DateLayout),
		Approved:         c.Approved,
		CategoryID:       c.CategoryID,
		RemoteCategoryID: c.RemoteCategoryID,
		Status:           string(c.Status),
		Conflict:         c.Conflict,
		ModifiedAt:       formatTimestamp(c.ModifiedAt),
	}
	for _, s := range c.Splits {
		resp.Splits = append(resp.Splits, dto.SplitResponse{
			ID:         s.ID,
			Amount:     s.Amount.String(),
			CategoryID: s.CategoryID,
			Memo:       s.Memo,
		})
	}
	if link != nil {
		m := toMatchResponse(*link)
		resp.Match = &m
	}
	return resp
}

func toOrderResponse(o model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:        o.ID,
		Date:      o.Date.Format(model.DateLayout),
		Total:     o.Total.String(),
		FetchedAt: formatTimestamp(o.FetchedAt),
		Items:     make([]dto.ItemResponse, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	return resp
}

func toItemResponse(item model.OrderItem) dto.ItemResponse {
	return dto.ItemResponse{
		Description: item.Description,
		UnitAmount:  item.UnitAmount.String(),
		Quantity:    item.Quantity,
		LineTotal:   item.LineTotal().String(),
	}
}

func toMatchResponse(link model.MatchLink) dto.MatchResponse {
	return dto.MatchResponse{
		ChargeID:           link.ChargeID,
		OrderID:            link.OrderID,
		Tier:               string(link.Tier),
		DuplicateCandidate: link.DuplicateCandidate,
		MatchedAt:          formatTimestamp(link.MatchedAt),
	}
}

func toSuggestionResponses(list []learner.Suggestion) []dto.SuggestionResponse {
	out := make([]dto.SuggestionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.SuggestionResponse{
			CategoryID:   s.CategoryID,
			CategoryName: s.CategoryName,
			Count:        s.Count,
			LastUsed:     formatTimestamp(s.LastUsed),
			Fuzzy:        s.Fuzzy,
			MatchedKey:   s.MatchedKey,
		})
	}
	return out
}

func toSuggestionsResponse(s *review.ChargeSuggestions) dto.ChargeSuggestionsResponse {
	resp := dto.ChargeSuggestionsResponse{
		Charge: toChargeResponse(*s.Charge, s.Match),
		Payee:  toSuggestionResponses(s.Payee),
	}
	if s.Order != nil {
		o := toOrderResponse(*s.Order)
		resp.Order = &o
	}
	for _, item := range s.Items {
		resp.Items = append(resp.Items, dto.ItemSuggestionResponse{
			Index:       item.Index,
			Item:        toItemResponse(item.Item),
			Suggestions: toSuggestionResponses(item.Suggestions),
		})
	}
	return resp
}

func toPushDiffResponse(d syncengine.PushDiff) dto.PushDiffResponse {
	return dto.PushDiffResponse{
		ChargeID: d.ChargeID,
		Payee:    d.Payee,
		Date:     d.Date.Format(model.DateLayout),
		Amount:   d.Amount.String(),
		From:     d.From,
		To:       d.To,
	}
}

// toSyncRunResponse converts a storage SyncRun to an API response.
func toSyncRunResponse(run storage.SyncRun) dto.SyncRunResponse {
	resp := dto.SyncRunResponse{
		ID:             run.ID,
		UUID:           run.UUID,
		Operation:      run.Operation,
		Mode:           run.Mode,
		Scope:          run.Scope,
		DryRun:         run.DryRun,
		StartedAt:      formatTimestamp(run.StartedAt),
		DurationMs:     run.Duration().Milliseconds(),
		Status:         run.Status,
		RecordsFetched: run.RecordsFetched,
		RecordsWritten: run.RecordsWritten,
		RecordsFailed:  run.RecordsFailed,
		ErrorMessage:   run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = formatTimestamp(*run.CompletedAt)
	}
	return resp
}

func toAPICallResponse(call storage.APICall) dto.APICallResponse {
	return dto.APICallResponse{
		ID:          call.ID,
		RunID:       call.RunID,
		ChargeID:    call.ChargeID,
		Method:      call.Method,
		RequestJSON: call.RequestJSON,
		Error:       call.Error,
		DurationMs:  call.DurationMs,
		CalledAt:    formatTimestamp(call.CalledAt),
	}
}

func toStatsResponse(s *storage.Stats) dto.StatsResponse {
	resp := dto.StatsResponse{
		Charges:         s.Charges,
		ByStatus:        make(map[string]int, len(s.ByStatus)),
		Uncategorized:   s.Uncategorized,
		Conflicts:       s.Conflicts,
		Orders:          s.Orders,
		Links:           s.Links,
		StrictLinks:     s.StrictLinks,
		ExtendedLinks:   s.ExtendedLinks,
		DuplicateLinks:  s.DuplicateLinks,
		Categorizations: s.Categorizations,
		Categories:      s.Categories,
	}
	for status, n := range s.ByStatus {
		resp.ByStatus[string(status)] = n
	}
	if s.LedgerLastSync != nil {
		resp.LedgerLastSync = formatTimestamp(*s.LedgerLastSync)
	}
	if s.OrdersLastSync != nil {
		resp.OrdersLastSync = formatTimestamp(*s.OrdersLastSync)
	}
	return resp
}
