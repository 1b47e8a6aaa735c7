package usage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mlorenz/socialflow/internal/core"
)

type fakeUsageStore struct {
	mu      sync.Mutex
	records map[string]*core.UsageRecord
	getErr  error
	putErr  error
	puts    int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{records: make(map[string]*core.UsageRecord)}
}

func (s *fakeUsageStore) GetUsage(_ context.Context, key string) (*core.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	// Copy so callers can't mutate stored state, mirroring a real store.
	cp := &core.UsageRecord{MetricKey: rec.MetricKey, Windows: make(map[core.WindowName]core.WindowCounter)}
	for name, w := range rec.Windows {
		cp.Windows[name] = w
	}
	return cp, nil
}

func (s *fakeUsageStore) PutUsage(_ context.Context, rec *core.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	s.records[rec.MetricKey] = rec
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLedger_RecordCreatesRecord(t *testing.T) {
	store := newFakeUsageStore()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ledger := NewLedger(store, WithLogger(quietLogger()), WithClock(func() time.Time { return now }))

	ledger.Record(context.Background(), MetricPost)

	rec := store.records[MetricPost]
	if rec == nil {
		t.Fatalf("expected record to be created")
	}
	for _, name := range core.WindowOrder {
		if got := rec.Windows[name].Count; got != 1 {
			t.Fatalf("window %s: expected count 1, got %d", name, got)
		}
		if want := now.Add(core.WindowDurations[name]).UnixMilli(); rec.Windows[name].ResetAt != want {
			t.Fatalf("window %s: unexpected resetAt", name)
		}
	}
}

func TestLedger_RecordIncrementsWithinWindow(t *testing.T) {
	store := newFakeUsageStore()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ledger := NewLedger(store, WithLogger(quietLogger()), WithClock(func() time.Time { return now }))

	ledger.Record(context.Background(), MetricRead)
	origReset := store.records[MetricRead].Windows[core.Window15Min].ResetAt

	now = now.Add(5 * time.Minute)
	ledger.Record(context.Background(), MetricRead)

	rec := store.records[MetricRead]
	if got := rec.Windows[core.Window15Min].Count; got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
	if rec.Windows[core.Window15Min].ResetAt != origReset {
		t.Fatalf("resetAt must be unchanged while the window is open")
	}
}

func TestLedger_RecordResetsOnlyExpiredWindows(t *testing.T) {
	store := newFakeUsageStore()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ledger := NewLedger(store, WithLogger(quietLogger()), WithClock(func() time.Time { return now }))

	ledger.Record(context.Background(), MetricPost)
	ledger.Record(context.Background(), MetricPost)

	now = now.Add(16 * time.Minute)
	ledger.Record(context.Background(), MetricPost)

	rec := store.records[MetricPost]
	if got := rec.Windows[core.Window15Min].Count; got != 1 {
		t.Fatalf("expected 15m window reset to fresh count 1, got %d", got)
	}
	if want := now.Add(15 * time.Minute).UnixMilli(); rec.Windows[core.Window15Min].ResetAt != want {
		t.Fatalf("expected new 15m resetAt after reset")
	}
	for _, name := range []core.WindowName{core.Window1Hr, core.Window24Hr, core.Window30Days} {
		if got := rec.Windows[name].Count; got != 3 {
			t.Fatalf("window %s: expected count 3, got %d", name, got)
		}
	}
}

func TestLedger_RecordSwallowsStoreErrors(t *testing.T) {
	store := newFakeUsageStore()
	store.putErr = errors.New("disk full")
	ledger := NewLedger(store, WithLogger(quietLogger()))

	// Must not panic and must not surface the failure.
	ledger.Record(context.Background(), MetricPost)

	store.getErr = errors.New("connection refused")
	ledger.Record(context.Background(), MetricPost)
}

func TestLedger_SnapshotDoesNotPersist(t *testing.T) {
	store := newFakeUsageStore()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ledger := NewLedger(store, WithLogger(quietLogger()), WithClock(func() time.Time { return now }))

	ledger.Record(context.Background(), MetricRead)
	putsAfterRecord := store.puts

	now = now.Add(2 * time.Hour)
	snap, err := ledger.Snapshot(context.Background(), MetricRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := snap.Windows[core.Window15Min].Count; got != 0 {
		t.Fatalf("snapshot must show expired windows as reset, got %d", got)
	}
	if got := snap.Windows[core.Window24Hr].Count; got != 1 {
		t.Fatalf("snapshot must keep open windows, got %d", got)
	}
	if store.puts != putsAfterRecord {
		t.Fatalf("snapshot must not write to the store")
	}
	// The stored record still carries the stale window untouched.
	if got := store.records[MetricRead].Windows[core.Window15Min].Count; got != 1 {
		t.Fatalf("stored record must be unchanged by snapshot")
	}
}

func TestLedger_SnapshotUnknownMetric(t *testing.T) {
	ledger := NewLedger(newFakeUsageStore(), WithLogger(quietLogger()))

	snap, err := ledger.Snapshot(context.Background(), "never-recorded")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range core.WindowOrder {
		if snap.Windows[name].Count != 0 {
			t.Fatalf("expected all-zero snapshot for unknown metric")
		}
	}
}
