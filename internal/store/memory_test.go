package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mlorenz/socialflow/internal/core"
)

func TestMemory_WorkflowLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	def := newTestWorkflow("wf-1")
	if err := m.SaveWorkflow(ctx, def); err != nil {
		t.Fatalf("SaveWorkflow() error = %v", err)
	}

	got, err := m.GetWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow() error = %v", err)
	}
	if got.Name != def.Name {
		t.Errorf("name = %q, want %q", got.Name, def.Name)
	}

	// Mutating the returned copy must not leak into the store.
	got.Name = "changed"
	again, _ := m.GetWorkflow(ctx, "wf-1")
	if again.Name == "changed" {
		t.Error("GetWorkflow() returned a shared pointer")
	}

	if err := m.DeleteWorkflow(ctx, "wf-1"); err != nil {
		t.Fatalf("DeleteWorkflow() error = %v", err)
	}
	if _, err := m.GetWorkflow(ctx, "wf-1"); !core.IsNotFound(err) {
		t.Errorf("GetWorkflow() after delete error = %v, want not found", err)
	}
}

func TestMemory_ListRunsPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 25; i++ {
		run := &core.WorkflowRun{
			ID:          core.RunID(fmt.Sprintf("run-%02d", i)),
			WorkflowID:  "wf-1",
			Status:      core.RunStatusSuccess,
			TriggerType: core.TriggerManual,
			StartedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := m.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	first, err := m.ListRuns(ctx, "wf-1", 10, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(first) != 10 {
		t.Fatalf("ListRuns() returned %d runs, want 10", len(first))
	}
	if first[0].ID != "run-24" {
		t.Errorf("first run = %s, want run-24 (newest first)", first[0].ID)
	}

	last, err := m.ListRuns(ctx, "wf-1", 10, 20)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(last) != 5 {
		t.Errorf("last page has %d runs, want 5", len(last))
	}

	empty, err := m.ListRuns(ctx, "wf-1", 10, 100)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("past-the-end page has %d runs, want 0", len(empty))
	}
}

func TestMemory_UsageIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	got, err := m.GetUsage(ctx, "read")
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if got != nil {
		t.Fatalf("GetUsage() for absent key = %+v, want nil", got)
	}

	rec := core.NewUsageRecord("read", time.Now())
	rec.Increment()
	if err := m.PutUsage(ctx, rec); err != nil {
		t.Fatalf("PutUsage() error = %v", err)
	}

	// The stored record must not alias the caller's map.
	rec.Increment()
	got, err = m.GetUsage(ctx, "read")
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if got.Windows[core.Window15Min].Count != 1 {
		t.Errorf("count = %d, want 1 (store must copy records)", got.Windows[core.Window15Min].Count)
	}
}
