package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"journey-insights/internal/model"
	"journey-insights/internal/service"
)

// ReadinessHandler handles readiness evaluation endpoints
type ReadinessHandler struct {
	cohortSvc *service.CohortService
}

// NewReadinessHandler creates a new readiness handler
func NewReadinessHandler(cohortSvc *service.CohortService) *ReadinessHandler {
	return &ReadinessHandler{cohortSvc: cohortSvc}
}

// Get handles GET /v1/programs/{programId}/readiness
func (h *ReadinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	programID := mux.Vars(r)["programId"]

	result, err := h.cohortSvc.Readiness(r.Context(), programID, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Evaluate handles POST /v1/programs/{programId}/readiness with an optional
// threshold override body
func (h *ReadinessHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	programID := mux.Vars(r)["programId"]

	var override model.ReadinessConfig
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold override body")
			return
		}
	}

	result, err := h.cohortSvc.Readiness(r.Context(), programID, &override)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
