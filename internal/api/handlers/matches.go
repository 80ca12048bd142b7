package handlers

import (
	"net/http"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// MatchesHandler handles match link HTTP requests.
type MatchesHandler struct {
	*Base
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(repo storage.Repository) *MatchesHandler {
	return &MatchesHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/matches - returns the current link set.
// ?duplicates=true limits it to links flagged as duplicate candidates.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyDuplicates := ParseBoolParam(r, "duplicates", false)

	links, err := h.repo.ListMatches(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.MatchListResponse{Matches: make([]dto.MatchResponse, 0, len(links))}
	for _, l := range links {
		if l.DuplicateCandidate {
			response.Duplicates++
		} else if onlyDuplicates {
			continue
		}
		response.Matches = append(response.Matches, toMatchResponse(l))
	}
	response.Count = len(response.Matches)

	h.WriteJSON(w, http.StatusOK, response)
}
