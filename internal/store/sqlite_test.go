package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlorenz/socialflow/internal/core"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "socialflow.db")
	s, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestWorkflow(id string) *core.WorkflowDefinition {
	now := time.Now().UTC().Truncate(time.Second) // SQLite stores with second precision
	return &core.WorkflowDefinition{
		ID:     core.WorkflowID(id),
		Name:   "Morning digest",
		Status: core.WorkflowStatusActive,
		Trigger: core.Trigger{
			Type:   core.TriggerCron,
			Config: json.RawMessage(`{"every":"30m"}`),
		},
		Steps: []core.Step{
			{ID: "search", Module: "twitter.search", Params: json.RawMessage(`{"query":"golang"}`)},
			{ID: "post", Module: "twitter.post"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLite_WorkflowRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	def := newTestWorkflow("wf-1")
	def.DisplayHint = &core.DisplayHint{Type: core.DisplayTable}
	if err := s.SaveWorkflow(ctx, def); err != nil {
		t.Fatalf("SaveWorkflow() error = %v", err)
	}

	got, err := s.GetWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow() error = %v", err)
	}
	if got.Name != def.Name || got.Status != def.Status {
		t.Errorf("got (%q, %q), want (%q, %q)", got.Name, got.Status, def.Name, def.Status)
	}
	if got.Trigger.Type != core.TriggerCron {
		t.Errorf("trigger type = %q, want cron", got.Trigger.Type)
	}
	if string(got.Trigger.Config) != `{"every":"30m"}` {
		t.Errorf("trigger config = %s", got.Trigger.Config)
	}
	if len(got.Steps) != 2 || got.Steps[1].Module != "twitter.post" {
		t.Errorf("steps not preserved: %+v", got.Steps)
	}
	if got.DisplayHint == nil || got.DisplayHint.Type != core.DisplayTable {
		t.Errorf("display hint not preserved: %+v", got.DisplayHint)
	}
}

func TestSQLite_WorkflowUpsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	def := newTestWorkflow("wf-1")
	if err := s.SaveWorkflow(ctx, def); err != nil {
		t.Fatalf("SaveWorkflow() error = %v", err)
	}

	def.Name = "Evening digest"
	def.Status = core.WorkflowStatusPaused
	if err := s.SaveWorkflow(ctx, def); err != nil {
		t.Fatalf("SaveWorkflow() update error = %v", err)
	}

	got, err := s.GetWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow() error = %v", err)
	}
	if got.Name != "Evening digest" || got.Status != core.WorkflowStatusPaused {
		t.Errorf("update not applied: %+v", got)
	}

	all, err := s.ListWorkflows(ctx)
	if err != nil {
		t.Fatalf("ListWorkflows() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListWorkflows() returned %d workflows, want 1", len(all))
	}
}

func TestSQLite_GetWorkflowNotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetWorkflow(context.Background(), "missing")
	if !core.IsNotFound(err) {
		t.Errorf("GetWorkflow() error = %v, want not found", err)
	}
}

func TestSQLite_DeleteWorkflow(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.SaveWorkflow(ctx, newTestWorkflow("wf-1")); err != nil {
		t.Fatalf("SaveWorkflow() error = %v", err)
	}
	if err := s.DeleteWorkflow(ctx, "wf-1"); err != nil {
		t.Fatalf("DeleteWorkflow() error = %v", err)
	}
	if _, err := s.GetWorkflow(ctx, "wf-1"); !core.IsNotFound(err) {
		t.Errorf("GetWorkflow() after delete error = %v, want not found", err)
	}
	if err := s.DeleteWorkflow(ctx, "wf-1"); !core.IsNotFound(err) {
		t.Errorf("DeleteWorkflow() twice error = %v, want not found", err)
	}
}

func TestSQLite_RunRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	run := &core.WorkflowRun{
		ID:          "run-1",
		WorkflowID:  "wf-1",
		Status:      core.RunStatusRunning,
		TriggerType: core.TriggerManual,
		StartedAt:   started,
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.CompletedAt != nil || got.DurationMs != nil {
		t.Errorf("running run should have nil completion fields: %+v", got)
	}

	// Terminal update.
	if err := run.Complete(started.Add(2*time.Second), json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() terminal error = %v", err)
	}

	got, err = s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != core.RunStatusSuccess {
		t.Errorf("status = %q, want success", got.Status)
	}
	if got.CompletedAt == nil || got.DurationMs == nil {
		t.Fatalf("terminal run missing completion fields: %+v", got)
	}
	if *got.DurationMs != 2000 {
		t.Errorf("duration = %d ms, want 2000", *got.DurationMs)
	}
	if string(got.Output) != `{"ok":true}` {
		t.Errorf("output = %s", got.Output)
	}
}

func TestSQLite_RunErrorFields(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	run := &core.WorkflowRun{
		ID:          "run-err",
		WorkflowID:  "wf-1",
		Status:      core.RunStatusRunning,
		TriggerType: core.TriggerCron,
		StartedAt:   started,
	}
	if err := run.Fail(started.Add(time.Second), "rate limited", "post"); err != nil {
		t.Fatalf("Fail() error = %v", err)
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := s.GetRun(ctx, "run-err")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Error != "rate limited" || got.ErrorStep != "post" {
		t.Errorf("error fields = (%q, %q), want (rate limited, post)", got.Error, got.ErrorStep)
	}
}

func TestSQLite_ListRunsPagination(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 25; i++ {
		run := &core.WorkflowRun{
			ID:          core.RunID(fmt.Sprintf("run-%02d", i)),
			WorkflowID:  "wf-1",
			Status:      core.RunStatusSuccess,
			TriggerType: core.TriggerManual,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}
	// A run for another workflow must never appear.
	other := &core.WorkflowRun{
		ID: "other", WorkflowID: "wf-2",
		Status: core.RunStatusSuccess, TriggerType: core.TriggerManual,
		StartedAt: base,
	}
	if err := s.SaveRun(ctx, other); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	seen := make(map[core.RunID]bool)
	var prev time.Time
	total := 0
	for _, page := range []struct{ limit, offset, want int }{
		{10, 0, 10}, {10, 10, 10}, {10, 20, 5}, {10, 30, 0},
	} {
		runs, err := s.ListRuns(ctx, "wf-1", page.limit, page.offset)
		if err != nil {
			t.Fatalf("ListRuns(%d, %d) error = %v", page.limit, page.offset, err)
		}
		if len(runs) != page.want {
			t.Fatalf("ListRuns(%d, %d) returned %d runs, want %d", page.limit, page.offset, len(runs), page.want)
		}
		for _, run := range runs {
			if seen[run.ID] {
				t.Errorf("run %s returned on two pages", run.ID)
			}
			seen[run.ID] = true
			if total > 0 && run.StartedAt.After(prev) {
				t.Errorf("runs not ordered newest first: %v after %v", run.StartedAt, prev)
			}
			prev = run.StartedAt
			total++
		}
	}
	if total != 25 {
		t.Errorf("paged through %d runs, want 25", total)
	}
}

func TestSQLite_UsageRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	got, err := s.GetUsage(ctx, "post")
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetUsage() for absent key = %+v, want nil", got)
	}

	rec := core.NewUsageRecord("post", time.Now())
	rec.Increment()
	rec.Increment()
	if err := s.PutUsage(ctx, rec); err != nil {
		t.Fatalf("PutUsage() error = %v", err)
	}

	got, err = s.GetUsage(ctx, "post")
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetUsage() = nil after put")
	}
	for _, name := range core.WindowOrder {
		w, ok := got.Windows[name]
		if !ok {
			t.Fatalf("window %s missing after round trip", name)
		}
		if w.Count != 2 {
			t.Errorf("window %s count = %d, want 2", name, w.Count)
		}
	}
}
