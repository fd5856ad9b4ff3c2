package handler

import (
	"encoding/json"
	"net/http"

	"journey-insights/internal/service"
)

// IngestHandler handles document ingestion endpoints
type IngestHandler struct {
	ingestSvc *service.IngestService
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestSvc *service.IngestService) *IngestHandler {
	return &IngestHandler{ingestSvc: ingestSvc}
}

// Ingest handles POST /v1/documents
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProgramID string `json:"programId"`
		Name      string `json:"name"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProgramID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "programId and text are required")
		return
	}

	result, err := h.ingestSvc.IngestDocument(r.Context(), req.ProgramID, req.Name, req.Text)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
