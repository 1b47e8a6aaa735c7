package core

import (
	"context"
	"encoding/json"
)

// =============================================================================
// Storage Ports
// =============================================================================

// WorkflowStore persists workflow definitions. Which engine backs it is
// irrelevant to the coordinator and ledger; adapters are interchangeable.
type WorkflowStore interface {
	// SaveWorkflow inserts or updates a definition.
	SaveWorkflow(ctx context.Context, def *WorkflowDefinition) error

	// GetWorkflow returns a definition, or a not-found error.
	GetWorkflow(ctx context.Context, id WorkflowID) (*WorkflowDefinition, error)

	// ListWorkflows returns all definitions, most recently updated first.
	ListWorkflows(ctx context.Context) ([]*WorkflowDefinition, error)

	// DeleteWorkflow removes a definition. Run history is kept.
	DeleteWorkflow(ctx context.Context, id WorkflowID) error
}

// RunStore persists workflow run records.
type RunStore interface {
	// SaveRun inserts or updates a run record.
	SaveRun(ctx context.Context, run *WorkflowRun) error

	// GetRun returns a run, or a not-found error.
	GetRun(ctx context.Context, id RunID) (*WorkflowRun, error)

	// ListRuns returns runs for a workflow ordered by start time descending,
	// using offset pagination. The window is best-effort: concurrent inserts
	// may shift it between pages.
	ListRuns(ctx context.Context, workflowID WorkflowID, limit, offset int) ([]*WorkflowRun, error)
}

// UsageStore persists usage records as a single serialized value per metric
// key.
type UsageStore interface {
	// GetUsage returns the stored record for a metric key, or nil when none
	// exists yet.
	GetUsage(ctx context.Context, metricKey string) (*UsageRecord, error)

	// PutUsage overwrites the stored record for a metric key, inserting when
	// absent.
	PutUsage(ctx context.Context, rec *UsageRecord) error
}

// =============================================================================
// Execution Ports
// =============================================================================

// StepExecutor performs a workflow's steps and produces the run output. The
// coordinator does not know step semantics; trigger payload validation is the
// executor's responsibility.
type StepExecutor interface {
	// Execute runs all steps in order. The returned value is the final
	// step's output. A failure should carry a *StepError naming the step
	// when it is known.
	Execute(ctx context.Context, def *WorkflowDefinition, payload json.RawMessage) (json.RawMessage, error)
}

// UsageRecorder is the fire-and-forget metering contract. Record never
// propagates failures to the caller.
type UsageRecorder interface {
	Record(ctx context.Context, metricKey string)
}
