package handlers

import (
	"log"
	"net/http"
	"strconv"

	"cvrp-router/internal/models"
	"cvrp-router/internal/report"
)

// RunListResponse represents the response for listing runs
type RunListResponse struct {
	Runs  []models.Run `json:"runs"`
	Total int          `json:"total"`
}

// RunDetailResponse is a persisted run with its rebuilt report
type RunDetailResponse struct {
	Run    *models.Run            `json:"run"`
	Report *models.SolutionReport `json:"report"`
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.DB == nil {
		h.writeError(w, http.StatusServiceUnavailable, "STORE_DISABLED", "Run history is not configured", nil)
		return false
	}
	return true
}

// HandleListRuns handles GET /api/v1/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.handleValidationError(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.DB.Runs().List(r.Context(), limit)
	if err != nil {
		h.handleInternalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Total: len(runs)})
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*models.Run, *models.SolutionReport, bool) {
	id := r.PathValue("id")
	if id == "" {
		h.handleValidationError(w, "Missing run id")
		return nil, nil, false
	}

	run, stops, err := h.DB.Runs().GetByID(r.Context(), id)
	if err != nil {
		if h.checkNotFound(err) {
			h.handleNotFound(w, "Run not found")
			return nil, nil, false
		}
		h.handleInternalError(w, err)
		return nil, nil, false
	}

	return run, report.FromRun(run, stops), true
}

// HandleGetRun handles GET /api/v1/runs/{id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	run, rep, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, RunDetailResponse{Run: run, Report: rep})
}

// HandleGetRunReport handles GET /api/v1/runs/{id}/report, always as text
func (h *Handler) HandleGetRunReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}
	_, rep, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.writeText(w, rep)
}

// HandleDeleteRun handles DELETE /api/v1/runs/{id}
func (h *Handler) HandleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	id := r.PathValue("id")
	if err := h.DB.Runs().Delete(r.Context(), id); err != nil {
		if h.checkNotFound(err) {
			h.handleNotFound(w, "Run not found")
			return
		}
		h.handleInternalError(w, err)
		return
	}

	log.Printf("[STORE] Deleted run: id=%s", id)
	w.WriteHeader(http.StatusNoContent)
}
