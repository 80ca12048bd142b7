package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/application/review"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// ReviewHandler handles suggestion and decision HTTP requests.
type ReviewHandler struct {
	*Base
	service *review.Service
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(repo storage.Repository, service *review.Service) *ReviewHandler {
	return &ReviewHandler{
		Base:    NewBase(repo),
		service: service,
	}
}

// Suggestions handles GET /api/charges/{id}/suggestions.
func (h *ReviewHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	got, err := h.service.Suggestions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteLookupError(w, err, "charge")
		return
	}

	h.WriteJSON(w, http.StatusOK, toSuggestionsResponse(got))
}

// Decide handles POST /api/charges/{id}/decision.
func (h *ReviewHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req dto.DecisionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	decision, err := req.ToDecision(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
		return
	}

	charge, err := h.service.Decide(r.Context(), decision)
	if err != nil {
		h.writeDecisionError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toChargeResponse(*charge, nil))
}

// SplitByItems handles POST /api/charges/{id}/split-by-items.
func (h *ReviewHandler) SplitByItems(w http.ResponseWriter, r *http.Request) {
	var req dto.SplitByItemsRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	overrides, err := req.OverrideIndexes()
	if err != nil {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
		return
	}

	charge, err := h.service.SplitByItems(r.Context(), review.SplitRequest{
		ChargeID:  chi.URLParam(r, "id"),
		Overrides: overrides,
		Stage:     req.Stage,
	})
	if err != nil {
		h.writeDecisionError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toChargeResponse(*charge, nil))
}

// Stage handles POST /api/charges/stage.
func (h *ReviewHandler) Stage(w http.ResponseWriter, r *http.Request) {
	var req dto.StageRequest
	if err := DecodeJSON(w, r, &req); err != nil || len(req.IDs) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("ids is required"))
		return
	}

	n, err := h.service.Stage(r.Context(), req.IDs...)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.StageResponse{Requested: len(req.IDs), Staged: n})
}

// Discard handles POST /api/charges/discard.
func (h *ReviewHandler) Discard(w http.ResponseWriter, r *http.Request) {
	var req dto.StageRequest
	if err := DecodeJSON(w, r, &req); err != nil || len(req.IDs) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("ids is required"))
		return
	}

	n, err := h.service.Discard(r.Context(), req.IDs...)
	if err != nil {
		h.writeDecisionError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.DiscardResponse{Requested: len(req.IDs), Discarded: n})
}

// Requeue handles POST /api/charges/requeue.
func (h *ReviewHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	var req dto.StageRequest
	if err := DecodeJSON(w, r, &req); err != nil || len(req.IDs) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("ids is required"))
		return
	}

	n, err := h.service.Requeue(r.Context(), req.IDs...)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.RequeueResponse{Requested: len(req.IDs), Requeued: n})
}

// writeDecisionError maps rejected decisions to 422 and missing charges to 404.
func (h *ReviewHandler) writeDecisionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("charge"))
	case errors.Is(err, model.ErrInvalidSplits),
		errors.Is(err, model.ErrCategoryAndSplits),
		errors.Is(err, storage.ErrEmptyDecision),
		errors.Is(err, review.ErrNoMatch),
		errors.Is(err, review.ErrNoSuggestion),
		errors.Is(err, review.ErrUnknownCategory):
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
	default:
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}
