// Package runs orchestrates workflow executions: it owns the run state
// machine (running -> success | error) and the run history contract.
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/events"
)

// Default pagination for History.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

// Coordinator takes a trigger invocation through to a terminal run record.
// It is the sole writer of WorkflowRun rows. The coordinator imposes no
// mutual exclusion across concurrent starts of one workflow: overlapping
// runs of the same definition are allowed.
type Coordinator struct {
	workflows core.WorkflowStore
	runs      core.RunStore
	executor  core.StepExecutor
	bus       *events.Bus
	logger    *slog.Logger
	now       func() time.Time

	// runTimeout bounds a single execution. Zero disables the deadline,
	// leaving an unresponsive executor to hold the run in running forever.
	runTimeout time.Duration
}

// Option configures the coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithRunTimeout sets the per-run execution deadline.
func WithRunTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.runTimeout = d
	}
}

// WithEventBus sets the bus run lifecycle events are published on.
func WithEventBus(bus *events.Bus) Option {
	return func(c *Coordinator) {
		c.bus = bus
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator creates a run coordinator.
func NewCoordinator(workflows core.WorkflowStore, runs core.RunStore, executor core.StepExecutor, opts ...Option) *Coordinator {
	c := &Coordinator{
		workflows:  workflows,
		runs:       runs,
		executor:   executor,
		logger:     slog.Default(),
		now:        time.Now,
		runTimeout: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start executes a workflow and returns its terminal run record. The run is
// created in the running state before execution and transitioned exactly
// once when the executor returns. An executor failure is a normal terminal
// outcome carried as data on the record, not an error from Start; only
// validation and not-found conditions fail the call itself, and those reject
// before any run record exists.
func (c *Coordinator) Start(ctx context.Context, workflowID core.WorkflowID, trigger core.TriggerType, payload json.RawMessage) (*core.WorkflowRun, error) {
	if !trigger.Valid() {
		return nil, core.ErrValidation(core.CodeInvalidTrigger, "unknown trigger type: "+string(trigger))
	}

	def, err := c.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	run := &core.WorkflowRun{
		ID:          core.RunID(uuid.NewString()),
		WorkflowID:  workflowID,
		Status:      core.RunStatusRunning,
		TriggerType: trigger,
		StartedAt:   c.now(),
	}
	if err := c.runs.SaveRun(ctx, run); err != nil {
		return nil, core.ErrInternal("creating run record").WithCause(err)
	}
	c.publish(events.NewRunStartedEvent(string(workflowID), string(run.ID), string(trigger)))
	c.logger.Info("run started",
		"run_id", run.ID,
		"workflow_id", workflowID,
		"trigger", trigger,
	)

	output, execErr := c.execute(ctx, def, payload)

	end := c.now()
	if execErr != nil {
		_ = run.Fail(end, execErr.Error(), core.FailingStep(execErr))
	} else {
		_ = run.Complete(end, output)
	}

	if err := c.runs.SaveRun(ctx, run); err != nil {
		// The terminal outcome is already decided; losing the write leaves a
		// stale running row, which we can only report.
		c.logger.Error("failed to persist terminal run", "run_id", run.ID, "error", err)
		return nil, core.ErrInternal("persisting run record").WithCause(err)
	}

	var durationMs int64
	if run.DurationMs != nil {
		durationMs = *run.DurationMs
	}
	c.publish(events.NewRunFinishedEvent(string(workflowID), string(run.ID), string(run.Status), durationMs, run.Error))
	c.logger.Info("run finished",
		"run_id", run.ID,
		"workflow_id", workflowID,
		"status", run.Status,
		"duration_ms", durationMs,
	)

	return run, nil
}

// execute delegates to the step executor under the configured deadline.
func (c *Coordinator) execute(ctx context.Context, def *core.WorkflowDefinition, payload json.RawMessage) (json.RawMessage, error) {
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	output, err := c.executor.Execute(ctx, def, payload)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return nil, core.ErrExecution(core.CodeRunTimeout, "execution timed out").WithCause(err)
	}
	return output, err
}

// History returns runs for a workflow, newest first, using offset
// pagination. The window is best-effort: runs inserted between pages shift
// it. Unknown workflows yield an empty history rather than an error.
func (c *Coordinator) History(ctx context.Context, workflowID core.WorkflowID, limit, offset int) ([]*core.WorkflowRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return c.runs.ListRuns(ctx, workflowID, limit, offset)
}

func (c *Coordinator) publish(event events.Event) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}
