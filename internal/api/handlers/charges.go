package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// ChargesHandler handles charge-related HTTP requests.
type ChargesHandler struct {
	*Base
}

// NewChargesHandler creates a new charges handler.
func NewChargesHandler(repo storage.Repository) *ChargesHandler {
	return &ChargesHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/charges - returns charges ordered by date.
func (h *ChargesHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.DefaultChargeListParams()
	params.Status = r.URL.Query().Get("status")
	params.Uncategorized = ParseBoolParam(r, "uncategorized", false)
	params.Conflict = ParseBoolParam(r, "conflict", false)
	params.Limit = ParseIntParam(r, "limit", params.Limit)
	params.Offset = ParseIntParam(r, "offset", 0)

	filter, err := params.Filter()
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	charges, err := h.repo.ListCharges(r.Context(), filter)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	links, err := h.linksByCharge(r)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ChargeListResponse{
		Charges: make([]dto.ChargeResponse, 0, len(charges)),
		Count:   len(charges),
		Limit:   params.Limit,
		Offset:  params.Offset,
	}
	for _, c := range charges {
		var link *model.MatchLink
		if l, ok := links[c.ID]; ok {
			link = &l
		}
		response.Charges = append(response.Charges, toChargeResponse(c, link))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/charges/{id} - returns a charge with its link.
func (h *ChargesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	charge, err := h.repo.GetCharge(r.Context(), id)
	if err != nil {
		h.WriteLookupError(w, err, "charge")
		return
	}

	link, err := h.repo.MatchForCharge(r.Context(), id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, toChargeResponse(*charge, link))
}

func (h *ChargesHandler) linksByCharge(r *http.Request) (map[string]model.MatchLink, error) {
	links, err := h.repo.ListMatches(r.Context())
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.MatchLink, len(links))
	for _, l := range links {
		out[l.ChargeID] = l
	}
	return out, nil
}
