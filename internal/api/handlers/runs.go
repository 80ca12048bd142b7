package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/itemize-reconcile/internal/api/dto"
	"github.com/eshaffer321/itemize-reconcile/internal/infrastructure/storage"
)

// RunsHandler handles sync run-related HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recent sync runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.repo.ListSyncRuns(r.Context(), limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.SyncRunListResponse{
		Runs:  make([]dto.SyncRunResponse, 0, len(runs)),
		Count: len(runs),
	}

	for _, run := range runs {
		response.Runs = append(response.Runs, toSyncRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single sync run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}

	run, err := h.repo.GetSyncRun(r.Context(), id)
	if err != nil {
		h.WriteLookupError(w, err, "sync run")
		return
	}

	h.WriteJSON(w, http.StatusOK, toSyncRunResponse(*run))
}

// Calls handles GET /api/runs/{id}/calls - returns the remote writes of a run.
func (h *RunsHandler) Calls(w http.ResponseWriter, r *http.Request) {
	id, ok := h.runID(w, r)
	if !ok {
		return
	}

	calls, err := h.repo.GetAPICallsByRunID(r.Context(), id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.APICallListResponse{
		Calls: make([]dto.APICallResponse, 0, len(calls)),
		Count: len(calls),
	}
	for _, call := range calls {
		response.Calls = append(response.Calls, toAPICallResponse(call))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

func (h *RunsHandler) runID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	if idStr == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return 0, false
	}
	return id, true
}
