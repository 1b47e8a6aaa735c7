package store

import (
	"context"
	"sort"
	"sync"

	"github.com/mlorenz/socialflow/internal/core"
)

// Memory is an in-memory store implementing every storage port. It backs
// tests and ephemeral deployments; data does not survive a restart.
type Memory struct {
	mu        sync.RWMutex
	workflows map[core.WorkflowID]*core.WorkflowDefinition
	runs      map[core.RunID]*core.WorkflowRun
	usage     map[string]*core.UsageRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		workflows: make(map[core.WorkflowID]*core.WorkflowDefinition),
		runs:      make(map[core.RunID]*core.WorkflowRun),
		usage:     make(map[string]*core.UsageRecord),
	}
}

// SaveWorkflow inserts or updates a definition.
func (m *Memory) SaveWorkflow(_ context.Context, def *core.WorkflowDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *def
	m.workflows[def.ID] = &cp
	return nil
}

// GetWorkflow returns a definition, or a not-found error.
func (m *Memory) GetWorkflow(_ context.Context, id core.WorkflowID) (*core.WorkflowDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.workflows[id]
	if !ok {
		return nil, core.ErrNotFound("workflow", string(id))
	}
	cp := *def
	return &cp, nil
}

// ListWorkflows returns all definitions, most recently updated first.
func (m *Memory) ListWorkflows(_ context.Context) ([]*core.WorkflowDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.WorkflowDefinition, 0, len(m.workflows))
	for _, def := range m.workflows {
		cp := *def
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// DeleteWorkflow removes a definition. Run history is kept.
func (m *Memory) DeleteWorkflow(_ context.Context, id core.WorkflowID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[id]; !ok {
		return core.ErrNotFound("workflow", string(id))
	}
	delete(m.workflows, id)
	return nil
}

// SaveRun inserts or updates a run record.
func (m *Memory) SaveRun(_ context.Context, run *core.WorkflowRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

// GetRun returns a run, or a not-found error.
func (m *Memory) GetRun(_ context.Context, id core.RunID) (*core.WorkflowRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, core.ErrNotFound("run", string(id))
	}
	cp := *run
	return &cp, nil
}

// ListRuns returns runs for a workflow newest first with offset pagination.
func (m *Memory) ListRuns(_ context.Context, workflowID core.WorkflowID, limit, offset int) ([]*core.WorkflowRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]*core.WorkflowRun, 0)
	for _, run := range m.runs {
		if run.WorkflowID == workflowID {
			cp := *run
			matched = append(matched, &cp)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	if offset >= len(matched) {
		return []*core.WorkflowRun{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// GetUsage returns the stored record for a metric key, or nil when absent.
func (m *Memory) GetUsage(_ context.Context, metricKey string) (*core.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.usage[metricKey]
	if !ok {
		return nil, nil
	}
	cp := &core.UsageRecord{MetricKey: rec.MetricKey, Windows: make(map[core.WindowName]core.WindowCounter, len(rec.Windows))}
	for name, w := range rec.Windows {
		cp.Windows[name] = w
	}
	return cp, nil
}

// PutUsage overwrites the stored record for a metric key.
func (m *Memory) PutUsage(_ context.Context, rec *core.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := &core.UsageRecord{MetricKey: rec.MetricKey, Windows: make(map[core.WindowName]core.WindowCounter, len(rec.Windows))}
	for name, w := range rec.Windows {
		cp.Windows[name] = w
	}
	m.usage[rec.MetricKey] = cp
	return nil
}

// Verify port implementations.
var (
	_ core.WorkflowStore = (*Memory)(nil)
	_ core.RunStore      = (*Memory)(nil)
	_ core.UsageStore    = (*Memory)(nil)
)
