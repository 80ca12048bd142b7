package handlers

import (
	"net/http"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// CategoriesHandler handles ledger category HTTP requests.
type CategoriesHandler struct {
	*Base
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo storage.Repository) *CategoriesHandler {
	return &CategoriesHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/categories - returns live ledger categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	includeHidden := ParseBoolParam(r, "hidden", false)

	cats, err := h.repo.ListCategories(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.CategoryListResponse{Categories: make([]dto.CategoryResponse, 0, len(cats))}
	for _, c := range cats {
		if c.Deleted || (c.Hidden && !includeHidden) {
			continue
		}
		response.Categories = append(response.Categories, dto.CategoryResponse{
			ID:     c.ID,
			Name:   c.Name,
			Group:  c.Group,
			Hidden: c.Hidden,
		})
	}
	response.Count = len(response.Categories)

	h.WriteJSON(w, http.StatusOK, response)
}
