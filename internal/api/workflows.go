package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/defs"
)

// handleListWorkflows returns all workflows, optionally narrowed by a fuzzy
// ?q= filter over name and id.
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	all, err := s.workflows.ListWorkflows(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		all = fuzzyFilter(all, q)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"workflows": all,
		"count":     len(all),
	})
}

// workflowHaystack adapts definitions for fuzzy matching.
type workflowHaystack []*core.WorkflowDefinition

func (h workflowHaystack) String(i int) string {
	return h[i].Name + " " + string(h[i].ID)
}

func (h workflowHaystack) Len() int {
	return len(h)
}

func fuzzyFilter(all []*core.WorkflowDefinition, q string) []*core.WorkflowDefinition {
	matches := fuzzy.FindFrom(q, workflowHaystack(all))
	out := make([]*core.WorkflowDefinition, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return out
}

// handleCreateWorkflow creates a workflow. A missing id is generated.
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var def core.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if def.ID == "" {
		def.ID = core.WorkflowID(uuid.NewString())
	}
	if def.Status == "" {
		def.Status = core.WorkflowStatusDraft
	}
	if err := def.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	if existing, err := s.workflows.GetWorkflow(r.Context(), def.ID); err == nil && existing != nil {
		respondError(w, http.StatusConflict, "workflow already exists: "+string(def.ID))
		return
	}

	defs.Touch(&def, s.now())
	if err := s.workflows.SaveWorkflow(r.Context(), &def); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &def)
}

// handleGetWorkflow returns one workflow by id.
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "workflowID"))
	def, err := s.workflows.GetWorkflow(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, def)
}

// handleUpdateWorkflow replaces a workflow definition. The path id wins
// over any id in the body; CreatedAt is preserved.
func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "workflowID"))

	existing, err := s.workflows.GetWorkflow(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var def core.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	def.ID = id
	if def.Status == "" {
		def.Status = existing.Status
	}
	if err := def.Validate(); err != nil {
		respondDomainError(w, err)
		return
	}

	def.CreatedAt = existing.CreatedAt
	defs.Touch(&def, s.now())
	if err := s.workflows.SaveWorkflow(r.Context(), &def); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, &def)
}

// handleDeleteWorkflow removes a workflow definition.
func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := core.WorkflowID(chi.URLParam(r, "workflowID"))
	if err := s.workflows.DeleteWorkflow(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": string(id)})
}
