package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/display"
)

// handleGetUsage returns the reset-adjusted usage snapshot for one metric.
// Metrics that were never recorded report zeroed windows.
func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")

	rec, err := s.ledger.Snapshot(r.Context(), metric)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"metric":  metric,
		"windows": rec.Windows,
	})
}

// classifyRequest is the body of POST /api/v1/classify.
type classifyRequest struct {
	Output json.RawMessage   `json:"output"`
	Module string            `json:"module,omitempty"`
	Hint   *core.DisplayHint `json:"hint,omitempty"`
}

// handleClassify classifies arbitrary run output into a display plan.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	plan := display.Classify(req.Output, req.Hint, req.Module)
	respondJSON(w, http.StatusOK, plan)
}
