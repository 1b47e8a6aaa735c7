package trigger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/store"
)

type recordingStarter struct {
	started []core.WorkflowID
	trigger core.TriggerType
}

func (r *recordingStarter) Start(_ context.Context, workflowID core.WorkflowID, trigger core.TriggerType, _ json.RawMessage) (*core.WorkflowRun, error) {
	r.started = append(r.started, workflowID)
	r.trigger = trigger
	return &core.WorkflowRun{ID: "run", WorkflowID: workflowID, Status: core.RunStatusSuccess}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cronWorkflow(id string, status core.WorkflowStatus, every string) *core.WorkflowDefinition {
	def := &core.WorkflowDefinition{
		ID:     core.WorkflowID(id),
		Name:   id,
		Status: status,
		Trigger: core.Trigger{
			Type:   core.TriggerCron,
			Config: json.RawMessage(`{"every":"` + every + `"}`),
		},
		Steps:     []core.Step{{Module: "twitter.post"}},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return def
}

func TestScheduler_FiresNeverRunWorkflow(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.SaveWorkflow(ctx, cronWorkflow("wf-due", core.WorkflowStatusActive, "30m")); err != nil {
		t.Fatal(err)
	}

	starter := &recordingStarter{}
	s := NewScheduler(mem, mem, starter, time.Minute, WithSchedulerLogger(discardLogger()))
	s.Scan(ctx)

	if len(starter.started) != 1 || starter.started[0] != "wf-due" {
		t.Fatalf("started = %v, want [wf-due]", starter.started)
	}
	if starter.trigger != core.TriggerCron {
		t.Errorf("trigger = %q, want cron", starter.trigger)
	}
}

func TestScheduler_RespectsInterval(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	if err := mem.SaveWorkflow(ctx, cronWorkflow("wf-1", core.WorkflowStatusActive, "30m")); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	// Last run 10 minutes ago: not due yet.
	if err := mem.SaveRun(ctx, &core.WorkflowRun{
		ID: "r1", WorkflowID: "wf-1",
		Status: core.RunStatusSuccess, TriggerType: core.TriggerCron,
		StartedAt: now.Add(-10 * time.Minute),
	}); err != nil {
		t.Fatal(err)
	}

	starter := &recordingStarter{}
	s := NewScheduler(mem, mem, starter, time.Minute,
		WithSchedulerLogger(discardLogger()),
		WithSchedulerClock(func() time.Time { return now }),
	)
	s.Scan(ctx)
	if len(starter.started) != 0 {
		t.Fatalf("fired %v before the interval elapsed", starter.started)
	}

	// 31 minutes after the last run: due.
	later := now.Add(21 * time.Minute)
	s2 := NewScheduler(mem, mem, starter, time.Minute,
		WithSchedulerLogger(discardLogger()),
		WithSchedulerClock(func() time.Time { return later }),
	)
	s2.Scan(ctx)
	if len(starter.started) != 1 {
		t.Fatalf("started = %v, want one firing after interval", starter.started)
	}
}

func TestScheduler_SkipsNonEligibleWorkflows(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// Paused, draft and error workflows never fire automatically.
	for _, status := range []core.WorkflowStatus{core.WorkflowStatusPaused, core.WorkflowStatusDraft, core.WorkflowStatusError} {
		if err := mem.SaveWorkflow(ctx, cronWorkflow("wf-"+string(status), status, "1m")); err != nil {
			t.Fatal(err)
		}
	}
	// Active but manual-triggered: not the scheduler's business.
	manual := cronWorkflow("wf-manual", core.WorkflowStatusActive, "1m")
	manual.Trigger = core.Trigger{Type: core.TriggerManual}
	if err := mem.SaveWorkflow(ctx, manual); err != nil {
		t.Fatal(err)
	}
	// Active cron with a broken interval: skipped, not fired.
	broken := cronWorkflow("wf-broken", core.WorkflowStatusActive, "soon")
	if err := mem.SaveWorkflow(ctx, broken); err != nil {
		t.Fatal(err)
	}

	starter := &recordingStarter{}
	s := NewScheduler(mem, mem, starter, time.Minute, WithSchedulerLogger(discardLogger()))
	s.Scan(ctx)

	if len(starter.started) != 0 {
		t.Fatalf("started = %v, want none", starter.started)
	}
}

func TestWatcher_ImportAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/digest.yaml", `
id: digest
name: Digest
status: active
steps:
  - module: twitter.search
    params:
      query: golang
`)

	mem := store.NewMemory()
	w := NewWatcher(dir, mem, WithWatcherLogger(discardLogger()))
	w.ImportAll(context.Background())

	def, err := mem.GetWorkflow(context.Background(), "digest")
	if err != nil {
		t.Fatalf("GetWorkflow() error = %v", err)
	}
	if def.Name != "Digest" || len(def.Steps) != 1 {
		t.Errorf("imported definition = %+v", def)
	}
	if def.CreatedAt.IsZero() || def.UpdatedAt.IsZero() {
		t.Error("import must stamp timestamps")
	}
}

func TestWatcher_UpsertKeepsCreatedAt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir+"/wf.yaml", "id: wf\nname: First\n")

	mem := store.NewMemory()
	created := time.Now().Add(-time.Hour)
	w := NewWatcher(dir, mem,
		WithWatcherLogger(discardLogger()),
		WithWatcherClock(func() time.Time { return created }),
	)
	w.ImportAll(context.Background())

	// Re-import with a changed name later.
	writeFile(t, dir+"/wf.yaml", "id: wf\nname: Second\n")
	later := created.Add(time.Hour)
	w2 := NewWatcher(dir, mem,
		WithWatcherLogger(discardLogger()),
		WithWatcherClock(func() time.Time { return later }),
	)
	w2.ImportAll(context.Background())

	def, err := mem.GetWorkflow(context.Background(), "wf")
	if err != nil {
		t.Fatalf("GetWorkflow() error = %v", err)
	}
	if def.Name != "Second" {
		t.Errorf("name = %q, want Second", def.Name)
	}
	if !def.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want original %v", def.CreatedAt, created)
	}
	if !def.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", def.UpdatedAt, later)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := writeFileRaw(path, content); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func writeFileRaw(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
