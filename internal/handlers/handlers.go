package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"cvrp-router/internal/cache"
	"cvrp-router/internal/database"
	"cvrp-router/internal/distance"
	"cvrp-router/internal/models"
	"cvrp-router/internal/report"
	"cvrp-router/internal/routing"
)

// Handler provides common handler utilities and dependencies.
// DB, Cache and OSRM are optional.
type Handler struct {
	DB              database.DataStore
	Solver          routing.Solver
	Cache           cache.SolutionCache
	OSRM            *distance.OSRMSource
	DefaultStrategy routing.Strategy
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// wantsText reports whether the client asked for the plain-text report
func wantsText(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/plain")
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeText(w http.ResponseWriter, rep *models.SolutionReport) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := report.Format(w, rep); err != nil {
		log.Printf("[ERROR] Failed to write report: %v", err)
	}
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleSolveError maps solver and distance failures onto API errors
func (h *Handler) handleSolveError(w http.ResponseWriter, err error) {
	var invalid *models.ErrInvalidInstance
	var infeasible *routing.ErrConstructionInfeasible
	var unavailable *distance.ErrDistanceCalculationFailed

	switch {
	case errors.As(err, &invalid):
		var details interface{}
		if invalid.Point >= 0 {
			details = map[string]int{"point": invalid.Point}
		}
		h.writeError(w, http.StatusUnprocessableEntity, "INVALID_INSTANCE", invalid.Reason, details)
	case errors.As(err, &infeasible):
		log.Printf("[ERROR] Construction infeasible: strategy=%s unrouted=%v vehicles=%d capacity=%d",
			infeasible.Strategy, infeasible.Unrouted, infeasible.Vehicles, infeasible.Capacity)
		h.writeError(w, http.StatusUnprocessableEntity, "CONSTRUCTION_INFEASIBLE", infeasible.Error(), map[string]interface{}{
			"strategy": infeasible.Strategy,
			"unrouted": infeasible.Unrouted,
			"vehicles": infeasible.Vehicles,
			"capacity": infeasible.Capacity,
		})
	case errors.As(err, &unavailable):
		log.Printf("[ERROR] Distance source failed: %v", err)
		h.writeError(w, http.StatusBadGateway, "DISTANCE_UNAVAILABLE", unavailable.Reason, nil)
	default:
		h.handleInternalError(w, err)
	}
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, err error) {
	log.Printf("[ERROR] Internal error: %v", err)
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// checkNotFound checks if an error is a not found error
func (h *Handler) checkNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "disabled"

	if h.DB != nil {
		dbStatus = "connected"
		if err := h.DB.HealthCheck(r.Context()); err != nil {
			status = "degraded"
			dbStatus = "error"
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   status,
		"version":  "1.0.0",
		"database": dbStatus,
	})
}
