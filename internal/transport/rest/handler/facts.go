package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"journey-insights/internal/service"
)

// FactsHandler handles cohort facts endpoints
type FactsHandler struct {
	cohortSvc *service.CohortService
}

// NewFactsHandler creates a new facts handler
func NewFactsHandler(cohortSvc *service.CohortService) *FactsHandler {
	return &FactsHandler{cohortSvc: cohortSvc}
}

// Get handles GET /v1/programs/{programId}/facts
func (h *FactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	programID := mux.Vars(r)["programId"]

	facts, err := h.cohortSvc.GetCohortFacts(r.Context(), programID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, facts)
}

// Rebuild handles POST /v1/programs/{programId}/facts/rebuild
func (h *FactsHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	programID := mux.Vars(r)["programId"]

	facts, changed, err := h.cohortSvc.Rebuild(r.Context(), programID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"changed": changed,
		"facts":   facts,
	})
}
