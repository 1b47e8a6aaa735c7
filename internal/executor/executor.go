// Package executor runs workflow steps. Each step module maps to a handler;
// steps run sequentially with the previous step's output as input, and the
// final step's output becomes the run output.
package executor

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mlorenz/socialflow/internal/core"
)

// StepFunc executes one step. params are the step's static configuration,
// input is the previous step's output (or the trigger payload for the first
// step).
type StepFunc func(ctx context.Context, params, input json.RawMessage) (json.RawMessage, error)

// Executor dispatches workflow steps to registered module handlers. It
// implements core.StepExecutor.
type Executor struct {
	registry map[string]StepFunc
	usage    core.UsageRecorder
	logger   *slog.Logger
}

// Option configures the executor.
type Option func(*Executor)

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithUsageRecorder sets the recorder quota-bearing steps report to.
func WithUsageRecorder(usage core.UsageRecorder) Option {
	return func(e *Executor) {
		e.usage = usage
	}
}

// New creates an executor with an empty registry.
func New(opts ...Option) *Executor {
	e := &Executor{
		registry: make(map[string]StepFunc),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register binds a module name to its handler. Later registrations replace
// earlier ones.
func (e *Executor) Register(module string, fn StepFunc) {
	e.registry[module] = fn
}

// Modules returns the registered module names.
func (e *Executor) Modules() []string {
	out := make([]string, 0, len(e.registry))
	for name := range e.registry {
		out = append(out, name)
	}
	return out
}

// Execute runs a workflow's steps in order. A failing step aborts the run
// with a StepError naming the step; the remaining steps do not run.
func (e *Executor) Execute(ctx context.Context, def *core.WorkflowDefinition, payload json.RawMessage) (json.RawMessage, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	input := payload
	for _, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			return nil, &core.StepError{Step: stepName(step), Err: err}
		}
		fn, ok := e.registry[step.Module]
		if !ok {
			return nil, &core.StepError{
				Step: stepName(step),
				Err:  core.ErrValidation(core.CodeUnknownModule, "unknown step module: "+step.Module),
			}
		}

		output, err := fn(ctx, step.Params, input)
		if err != nil {
			e.logger.Warn("step failed",
				"workflow_id", def.ID,
				"step", stepName(step),
				"module", step.Module,
				"error", err,
			)
			return nil, &core.StepError{Step: stepName(step), Err: err}
		}
		e.logger.Debug("step completed", "workflow_id", def.ID, "step", stepName(step))
		input = output
	}
	return input, nil
}

// record reports quota consumption. Metering failures never fail a step;
// Record swallows them by contract.
func (e *Executor) record(ctx context.Context, metricKey string) {
	if e.usage != nil {
		e.usage.Record(ctx, metricKey)
	}
}

func stepName(step core.Step) string {
	if step.ID != "" {
		return step.ID
	}
	return step.Module
}

// Verify port implementation.
var _ core.StepExecutor = (*Executor)(nil)
