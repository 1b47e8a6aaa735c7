// Package trigger fires workflow runs from sources other than the HTTP API:
// an interval scheduler for cron triggers and a filesystem watcher that
// imports YAML definitions.
package trigger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mlorenz/socialflow/internal/core"
)

// Starter is the slice of the run coordinator the scheduler needs.
type Starter interface {
	Start(ctx context.Context, workflowID core.WorkflowID, trigger core.TriggerType, payload json.RawMessage) (*core.WorkflowRun, error)
}

// Scheduler scans active cron-triggered workflows on a fixed tick and starts
// those whose interval has elapsed since their last run. It is best-effort:
// missed ticks are not caught up, and multiple instances would double-fire.
type Scheduler struct {
	workflows core.WorkflowStore
	runs      core.RunStore
	starter   Starter
	logger    *slog.Logger
	tick      time.Duration
	now       func() time.Time
}

// SchedulerOption configures the scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerLogger sets the scheduler logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithSchedulerClock overrides the time source, for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a scheduler scanning every tick.
func NewScheduler(workflows core.WorkflowStore, runs core.RunStore, starter Starter, tick time.Duration, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		workflows: workflows,
		runs:      runs,
		starter:   starter,
		logger:    slog.Default(),
		tick:      tick,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scans until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan fires every due workflow once. Exported for tests and for a manual
// trigger sweep.
func (s *Scheduler) Scan(ctx context.Context) {
	all, err := s.workflows.ListWorkflows(ctx)
	if err != nil {
		s.logger.Error("scheduler failed to list workflows", "error", err)
		return
	}

	for _, def := range all {
		due, err := s.isDue(ctx, def)
		if err != nil {
			s.logger.Warn("skipping workflow in scheduler scan", "workflow_id", def.ID, "error", err)
			continue
		}
		if !due {
			continue
		}

		s.logger.Info("scheduler firing workflow", "workflow_id", def.ID)
		if _, err := s.starter.Start(ctx, def.ID, core.TriggerCron, nil); err != nil {
			s.logger.Error("scheduled run failed to start", "workflow_id", def.ID, "error", err)
		}
	}
}

// isDue reports whether a workflow should fire this scan: it must be active
// with a cron trigger, and its interval must have elapsed since the last run
// started (or never have run).
func (s *Scheduler) isDue(ctx context.Context, def *core.WorkflowDefinition) (bool, error) {
	if def.Trigger.Type != core.TriggerCron {
		return false, nil
	}
	if !def.Status.AllowsAutomaticTrigger() {
		return false, nil
	}

	var cfg core.CronConfig
	if len(def.Trigger.Config) > 0 {
		if err := json.Unmarshal(def.Trigger.Config, &cfg); err != nil {
			return false, err
		}
	}
	if cfg.Every == "" {
		return false, nil
	}
	interval, err := time.ParseDuration(cfg.Every)
	if err != nil || interval <= 0 {
		return false, err
	}

	last, err := s.runs.ListRuns(ctx, def.ID, 1, 0)
	if err != nil {
		return false, err
	}
	if len(last) == 0 {
		return true, nil
	}
	return s.now().Sub(last[0].StartedAt) >= interval, nil
}
