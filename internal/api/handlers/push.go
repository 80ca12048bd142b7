package handlers

import (
	"context"
	"net/http"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	syncengine "github.com/eshaffer321/itemize-reconcile/internal/application/sync"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// Pusher is the part of the sync engine the API exposes.
type Pusher interface {
	Push(ctx context.Context, opts syncengine.PushOptions) (*syncengine.PushResult, error)
}

// PushHandler handles push preview requests. The API never pushes; that
// stays an operator action on the CLI.
type PushHandler struct {
	*Base
	pusher Pusher
}

// NewPushHandler creates a new push handler.
func NewPushHandler(repo storage.Repository, pusher Pusher) *PushHandler {
	return &PushHandler{
		Base:   NewBase(repo),
		pusher: pusher,
	}
}

// Preview handles GET /api/push/preview - returns the dry-run diff of pending charges.
func (h *PushHandler) Preview(w http.ResponseWriter, r *http.Request) {
	result, err := h.pusher.Push(r.Context(), syncengine.PushOptions{DryRun: true})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.PushPreviewResponse{
		Pending: result.Pending,
		Diffs:   make([]dto.PushDiffResponse, 0, len(result.Diffs)),
	}
	for _, d := range result.Diffs {
		response.Diffs = append(response.Diffs, toPushDiffResponse(d))
	}

	h.WriteJSON(w, http.StatusOK, response)
}
