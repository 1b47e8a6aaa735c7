package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/display"
)

// runResponse pairs a run with the display plan for its output.
type runResponse struct {
	*core.WorkflowRun
	Display *core.DisplayPlan `json:"display,omitempty"`
}

// handleStartRun starts a manual run and blocks until it is terminal. An
// executor failure is reported as a 200 with an error-status run; HTTP
// errors are reserved for requests that never produced a run.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "workflowID"))

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}
	if len(payload) > 0 && !json.Valid(payload) {
		respondError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}

	run, err := s.coordinator.Start(r.Context(), id, core.TriggerManual, payload)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.withDisplay(r, id, run))
}

// handleListRuns returns run history with limit/offset pagination.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "workflowID"))

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	history, err := s.coordinator.History(r.Context(), id, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"runs":   history,
		"count":  len(history),
		"offset": offset,
	})
}

// handleWebhook starts a run from an inbound webhook. Only active workflows
// accept automatic triggers.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "workflowID"))

	def, err := s.workflows.GetWorkflow(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !def.Status.AllowsAutomaticTrigger() {
		respondDomainError(w, core.ErrState(core.CodeTriggerNotAllowed,
			"workflow is not active: "+string(def.Status)))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading request body: "+err.Error())
		return
	}
	if len(payload) > 0 && !json.Valid(payload) {
		respondError(w, http.StatusBadRequest, "request body must be JSON")
		return
	}

	run, err := s.coordinator.Start(r.Context(), id, core.TriggerWebhook, payload)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.withDisplay(r, id, run))
}

// withDisplay attaches an output display plan to successful runs.
func (s *Server) withDisplay(r *http.Request, id core.WorkflowID, run *core.WorkflowRun) runResponse {
	resp := runResponse{WorkflowRun: run}
	if run.Status != core.RunStatusSuccess || len(run.Output) == 0 {
		return resp
	}

	var hint *core.DisplayHint
	var module string
	if def, err := s.workflows.GetWorkflow(r.Context(), id); err == nil {
		hint = def.DisplayHint
		module = def.LastStepModule()
	}
	plan := display.Classify(run.Output, hint, module)
	resp.Display = &plan
	return resp
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
