package events

// Event type constants for run lifecycle events.
const (
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
)

// RunStartedEvent signals that a workflow run entered the running state.
type RunStartedEvent struct {
	BaseEvent
	RunID       string `json:"run_id"`
	TriggerType string `json:"trigger_type"`
}

// NewRunStartedEvent creates a run started event.
func NewRunStartedEvent(workflowID, runID, triggerType string) RunStartedEvent {
	return RunStartedEvent{
		BaseEvent:   NewBaseEvent(TypeRunStarted, workflowID),
		RunID:       runID,
		TriggerType: triggerType,
	}
}

// RunFinishedEvent signals that a run reached a terminal status.
type RunFinishedEvent struct {
	BaseEvent
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// NewRunFinishedEvent creates a run finished event.
func NewRunFinishedEvent(workflowID, runID, status string, durationMs int64, errMsg string) RunFinishedEvent {
	return RunFinishedEvent{
		BaseEvent:  NewBaseEvent(TypeRunFinished, workflowID),
		RunID:      runID,
		Status:     status,
		DurationMs: durationMs,
		Error:      errMsg,
	}
}
