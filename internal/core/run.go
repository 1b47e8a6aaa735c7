package core

import (
	"encoding/json"
	"time"
)

// RunID uniquely identifies a workflow run.
type RunID string

// RunStatus represents the state of a single run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusError   RunStatus = "error"
)

// IsTerminal reports whether the status is a terminal outcome.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSuccess || s == RunStatusError
}

// Valid reports whether the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusSuccess, RunStatusError:
		return true
	}
	return false
}

// TriggerType identifies the event category that initiated a run.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerChat     TriggerType = "chat"
	TriggerWebhook  TriggerType = "webhook"
	TriggerCron     TriggerType = "cron"
	TriggerTelegram TriggerType = "telegram"
	TriggerDiscord  TriggerType = "discord"
)

// Valid reports whether the trigger type is a known value.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerManual, TriggerChat, TriggerWebhook, TriggerCron, TriggerTelegram, TriggerDiscord:
		return true
	}
	return false
}

// WorkflowRun records one execution attempt of a workflow.
// A run is created in the running state and transitions exactly once to
// success or error; it is immutable afterwards.
type WorkflowRun struct {
	ID          RunID           `json:"id"`
	WorkflowID  WorkflowID      `json:"workflow_id"`
	Status      RunStatus       `json:"status"`
	TriggerType TriggerType     `json:"trigger_type"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	DurationMs  *int64          `json:"duration_ms,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorStep   string          `json:"error_step,omitempty"`
}

// Complete applies the success terminal transition.
func (r *WorkflowRun) Complete(at time.Time, output json.RawMessage) error {
	if r.Status.IsTerminal() {
		return ErrState(CodeRunAlreadyTerminal, "run already reached a terminal status")
	}
	r.Status = RunStatusSuccess
	r.Output = output
	r.finish(at)
	return nil
}

// Fail applies the error terminal transition. step may be empty when the
// failing step is not known.
func (r *WorkflowRun) Fail(at time.Time, message, step string) error {
	if r.Status.IsTerminal() {
		return ErrState(CodeRunAlreadyTerminal, "run already reached a terminal status")
	}
	r.Status = RunStatusError
	r.Error = message
	r.ErrorStep = step
	r.finish(at)
	return nil
}

func (r *WorkflowRun) finish(at time.Time) {
	completed := at
	r.CompletedAt = &completed
	ms := completed.Sub(r.StartedAt).Milliseconds()
	r.DurationMs = &ms
}
