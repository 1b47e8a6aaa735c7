package trigger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mlorenz/socialflow/internal/core"
	"github.com/mlorenz/socialflow/internal/defs"
)

// Watcher imports workflow definitions from a directory: a created or
// modified *.yaml file upserts its definition into the store.
type Watcher struct {
	dir       string
	workflows core.WorkflowStore
	logger    *slog.Logger
	now       func() time.Time

	// settle coalesces write bursts from editors before re-reading a file.
	settle time.Duration
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the watcher logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithWatcherClock overrides the time source, for tests.
func WithWatcherClock(now func() time.Time) WatcherOption {
	return func(w *Watcher) {
		w.now = now
	}
}

// NewWatcher creates a definitions watcher for dir.
func NewWatcher(dir string, workflows core.WorkflowStore, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:       dir,
		workflows: workflows,
		logger:    slog.Default(),
		now:       time.Now,
		settle:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run imports the directory once, then watches for changes until the
// context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return err
	}
	w.ImportAll(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !defs.IsDefinitionFile(event.Name) {
				continue
			}
			time.Sleep(w.settle)
			w.importFile(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("definitions watcher error", "error", err)
		}
	}
}

// ImportAll loads every definition file currently in the directory.
func (w *Watcher) ImportAll(ctx context.Context) {
	loaded, err := defs.LoadDir(w.dir)
	if err != nil {
		w.logger.Warn("some definition files failed to load", "error", err)
	}
	for _, def := range loaded {
		w.upsert(ctx, def)
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	def, err := defs.Load(path)
	if err != nil {
		w.logger.Warn("ignoring invalid definition file", "file", filepath.Base(path), "error", err)
		return
	}
	w.upsert(ctx, def)
}

func (w *Watcher) upsert(ctx context.Context, def *core.WorkflowDefinition) {
	existing, err := w.workflows.GetWorkflow(ctx, def.ID)
	if err == nil {
		def.CreatedAt = existing.CreatedAt
	} else if !core.IsNotFound(err) {
		w.logger.Error("failed to look up workflow during import", "workflow_id", def.ID, "error", err)
		return
	}
	defs.Touch(def, w.now())

	if err := w.workflows.SaveWorkflow(ctx, def); err != nil {
		w.logger.Error("failed to import workflow definition", "workflow_id", def.ID, "error", err)
		return
	}
	w.logger.Info("imported workflow definition", "workflow_id", def.ID, "name", def.Name)
}
