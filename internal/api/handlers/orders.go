package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/domain/model"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// OrdersHandler handles order-related HTTP requests.
type OrdersHandler struct {
	*Base
	now func() time.Time
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(repo storage.Repository) *OrdersHandler {
	return &OrdersHandler{
		Base: NewBase(repo),
		now:  time.Now,
	}
}

// List handles GET /api/orders?from=YYYY-MM-DD&to=YYYY-MM-DD - returns
// orders placed in the inclusive range. The default range is the last 30 days.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	to := h.now().UTC()
	from := to.AddDate(0, 0, -30)

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(model.DateLayout, v); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("from must be YYYY-MM-DD"))
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(model.DateLayout, v); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("to must be YYYY-MM-DD"))
			return
		}
	}
	if to.Before(from) {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("to is before from"))
		return
	}

	orders, err := h.repo.ListOrdersBetween(r.Context(), from, to)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.OrderListResponse{
		Orders: make([]dto.OrderResponse, 0, len(orders)),
		Count:  len(orders),
	}
	for _, o := range orders {
		response.Orders = append(response.Orders, toOrderResponse(o))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/orders/{id} - returns a single order with its items.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.repo.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteLookupError(w, err, "order")
		return
	}

	h.WriteJSON(w, http.StatusOK, toOrderResponse(*order))
}
