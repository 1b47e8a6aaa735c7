package core

import (
	"encoding/json"
	"time"
)

// WorkflowID uniquely identifies a workflow definition.
type WorkflowID string

// WorkflowStatus represents the lifecycle state of a workflow definition.
// It is independent of any single run's outcome: a paused workflow keeps its
// run history, and an error-status workflow can still be started manually.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"
	WorkflowStatusActive WorkflowStatus = "active"
	WorkflowStatusPaused WorkflowStatus = "paused"
	WorkflowStatusError  WorkflowStatus = "error"
)

// Valid reports whether the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusDraft, WorkflowStatusActive, WorkflowStatusPaused, WorkflowStatusError:
		return true
	}
	return false
}

// AllowsAutomaticTrigger reports whether cron/webhook triggers may fire.
// Manual starts are permitted regardless of definition status.
func (s WorkflowStatus) AllowsAutomaticTrigger() bool {
	return s == WorkflowStatusActive
}

// Step is one unit of work inside a workflow. The module name selects the
// executor step implementation; params are opaque to the coordinator.
type Step struct {
	ID     string          `json:"id" yaml:"id"`
	Module string          `json:"module" yaml:"module"`
	Params json.RawMessage `json:"params,omitempty" yaml:"-"`
}

// Trigger configures how a workflow is initiated.
type Trigger struct {
	Type   TriggerType     `json:"type" yaml:"type"`
	Config json.RawMessage `json:"config,omitempty" yaml:"-"`
}

// CronConfig is the decoded config for cron triggers.
type CronConfig struct {
	// Every is the firing interval in Go duration syntax, e.g. "30m".
	Every string `json:"every" yaml:"every"`
}

// WorkflowDefinition describes an automation: an ordered list of steps plus
// the trigger that initiates them.
type WorkflowDefinition struct {
	ID          WorkflowID     `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Status      WorkflowStatus `json:"status"`
	Trigger     Trigger        `json:"trigger"`
	Steps       []Step         `json:"steps"`
	DisplayHint *DisplayHint   `json:"display_hint,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// LastStepModule returns the module of the final step, the one most likely
// to have produced the run output. Empty when the workflow has no steps.
func (w *WorkflowDefinition) LastStepModule() string {
	if len(w.Steps) == 0 {
		return ""
	}
	return w.Steps[len(w.Steps)-1].Module
}

// Validate checks structural invariants of a definition.
func (w *WorkflowDefinition) Validate() error {
	if w.ID == "" {
		return ErrValidation(CodeMissingID, "workflow id is required")
	}
	if w.Name == "" {
		return ErrValidation(CodeMissingName, "workflow name is required")
	}
	if !w.Status.Valid() {
		return ErrValidation(CodeInvalidStatus, "unknown workflow status: "+string(w.Status))
	}
	if w.Trigger.Type != "" && !w.Trigger.Type.Valid() {
		return ErrValidation(CodeInvalidTrigger, "unknown trigger type: "+string(w.Trigger.Type))
	}
	seen := make(map[string]bool, len(w.Steps))
	for _, step := range w.Steps {
		if step.Module == "" {
			return ErrValidation(CodeInvalidStep, "step module is required")
		}
		if step.ID != "" && seen[step.ID] {
			return ErrValidation(CodeInvalidStep, "duplicate step id: "+step.ID)
		}
		seen[step.ID] = true
	}
	return nil
}
