package store

import (
	"context"
	"database/sql"
	"encoding/json"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mlorenz/socialflow/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLite persists workflows, run history and usage records in a single
// SQLite database file opened in WAL mode.
type SQLite struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLite opens or creates the database at dbPath and applies pending
// migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	s := &SQLite{dbPath: dbPath}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// migrate runs pending migrations.
func (s *SQLite) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration
		version = 0
	}

	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}

	return nil
}

// SaveWorkflow inserts or updates a workflow definition.
func (s *SQLite) SaveWorkflow(ctx context.Context, def *core.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stepsJSON, err := json.Marshal(def.Steps)
	if err != nil {
		return fmt.Errorf("marshaling steps: %w", err)
	}

	var hintJSON []byte
	if def.DisplayHint != nil {
		hintJSON, err = json.Marshal(def.DisplayHint)
		if err != nil {
			return fmt.Errorf("marshaling display hint: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (
			id, name, description, status, trigger_type, trigger_config,
			steps, display_hint, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			trigger_type = excluded.trigger_type,
			trigger_config = excluded.trigger_config,
			steps = excluded.steps,
			display_hint = excluded.display_hint,
			updated_at = excluded.updated_at
	`,
		def.ID, def.Name, def.Description, def.Status,
		def.Trigger.Type, nullableString([]byte(def.Trigger.Config)),
		string(stepsJSON), nullableString(hintJSON),
		def.CreatedAt.UTC(), def.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting workflow: %w", err)
	}
	return nil
}

// GetWorkflow loads a workflow definition by id.
func (s *SQLite) GetWorkflow(ctx context.Context, id core.WorkflowID) (*core.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, status, trigger_type, trigger_config,
		       steps, display_hint, created_at, updated_at
		FROM workflows WHERE id = ?
	`, id)

	def, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("workflow", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("loading workflow: %w", err)
	}
	return def, nil
}

// ListWorkflows returns all workflow definitions, most recently updated first.
func (s *SQLite) ListWorkflows(ctx context.Context) ([]*core.WorkflowDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, status, trigger_type, trigger_config,
		       steps, display_hint, created_at, updated_at
		FROM workflows ORDER BY updated_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*core.WorkflowDefinition
	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workflow: %w", err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

// DeleteWorkflow removes a definition. Run history is kept.
func (s *SQLite) DeleteWorkflow(ctx context.Context, id core.WorkflowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting workflow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting workflow: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound("workflow", string(id))
	}
	return nil
}

// SaveRun inserts or updates a run record.
func (s *SQLite) SaveRun(ctx context.Context, run *core.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC()
	}
	var durationMs any
	if run.DurationMs != nil {
		durationMs = *run.DurationMs
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_runs (
			id, workflow_id, status, trigger_type, started_at,
			completed_at, duration_ms, output, error, error_step
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			duration_ms = excluded.duration_ms,
			output = excluded.output,
			error = excluded.error,
			error_step = excluded.error_step
	`,
		run.ID, run.WorkflowID, run.Status, run.TriggerType, run.StartedAt.UTC(),
		completedAt, durationMs,
		nullableString([]byte(run.Output)),
		nullableString([]byte(run.Error)),
		nullableString([]byte(run.ErrorStep)),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}
	return nil
}

// GetRun loads a single run by id.
func (s *SQLite) GetRun(ctx context.Context, id core.RunID) (*core.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, status, trigger_type, started_at,
		       completed_at, duration_ms, output, error, error_step
		FROM workflow_runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("run", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs for a workflow newest first with offset pagination.
func (s *SQLite) ListRuns(ctx context.Context, workflowID core.WorkflowID, limit, offset int) ([]*core.WorkflowRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, status, trigger_type, started_at,
		       completed_at, duration_ms, output, error, error_step
		FROM workflow_runs WHERE workflow_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, workflowID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*core.WorkflowRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetUsage returns the stored record for a metric key, or nil when absent.
func (s *SQLite) GetUsage(ctx context.Context, metricKey string) (*core.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM usage_records WHERE metric_key = ?", metricKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading usage record: %w", err)
	}

	rec := &core.UsageRecord{MetricKey: metricKey}
	if err := json.Unmarshal([]byte(value), rec); err != nil {
		return nil, fmt.Errorf("decoding usage record: %w", err)
	}
	return rec, nil
}

// PutUsage overwrites the stored record for a metric key.
func (s *SQLite) PutUsage(ctx context.Context, rec *core.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding usage record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO usage_records (metric_key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(metric_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, rec.MetricKey, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting usage record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*core.WorkflowDefinition, error) {
	var (
		def           core.WorkflowDefinition
		triggerConfig sql.NullString
		stepsJSON     string
		hintJSON      sql.NullString
	)
	err := row.Scan(
		&def.ID, &def.Name, &def.Description, &def.Status,
		&def.Trigger.Type, &triggerConfig,
		&stepsJSON, &hintJSON, &def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if triggerConfig.Valid {
		def.Trigger.Config = json.RawMessage(triggerConfig.String)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &def.Steps); err != nil {
		return nil, fmt.Errorf("decoding steps: %w", err)
	}
	if hintJSON.Valid {
		var hint core.DisplayHint
		if err := json.Unmarshal([]byte(hintJSON.String), &hint); err != nil {
			return nil, fmt.Errorf("decoding display hint: %w", err)
		}
		def.DisplayHint = &hint
	}
	return &def, nil
}

func scanRun(row rowScanner) (*core.WorkflowRun, error) {
	var (
		run         core.WorkflowRun
		completedAt sql.NullTime
		durationMs  sql.NullInt64
		output      sql.NullString
		errMsg      sql.NullString
		errStep     sql.NullString
	)
	err := row.Scan(
		&run.ID, &run.WorkflowID, &run.Status, &run.TriggerType, &run.StartedAt,
		&completedAt, &durationMs, &output, &errMsg, &errStep,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if durationMs.Valid {
		ms := durationMs.Int64
		run.DurationMs = &ms
	}
	if output.Valid {
		run.Output = json.RawMessage(output.String)
	}
	run.Error = errMsg.String
	run.ErrorStep = errStep.String
	return &run, nil
}

// nullableString converts empty byte slices to NULL.
func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Verify port implementations.
var (
	_ core.WorkflowStore = (*SQLite)(nil)
	_ core.RunStore      = (*SQLite)(nil)
	_ core.UsageStore    = (*SQLite)(nil)
)
