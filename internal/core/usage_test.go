package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestUsageRecord_FreshWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := NewUsageRecord("post", now)

	if len(rec.Windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(rec.Windows))
	}
	for name, dur := range WindowDurations {
		w := rec.Windows[name]
		if w.Count != 0 {
			t.Fatalf("window %s: expected zero count", name)
		}
		if want := now.Add(dur).UnixMilli(); w.ResetAt != want {
			t.Fatalf("window %s: expected resetAt %d, got %d", name, want, w.ResetAt)
		}
	}
}

func TestUsageRecord_ResetIsIndependent(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := NewUsageRecord("read", now)
	rec.Increment()
	rec.Increment()

	// 20 minutes later only the 15-minute window has expired.
	later := now.Add(20 * time.Minute)
	rec.ResetExpired(later)

	if got := rec.Windows[Window15Min].Count; got != 0 {
		t.Fatalf("expected 15m window reset to 0, got %d", got)
	}
	if want := later.Add(15 * time.Minute).UnixMilli(); rec.Windows[Window15Min].ResetAt != want {
		t.Fatalf("expected 15m resetAt %d, got %d", want, rec.Windows[Window15Min].ResetAt)
	}
	for _, name := range []WindowName{Window1Hr, Window24Hr, Window30Days} {
		if got := rec.Windows[name].Count; got != 2 {
			t.Fatalf("window %s: expected count 2 untouched, got %d", name, got)
		}
		if want := now.Add(WindowDurations[name]).UnixMilli(); rec.Windows[name].ResetAt != want {
			t.Fatalf("window %s: resetAt must be unchanged", name)
		}
	}
}

func TestUsageRecord_ResetAtBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := NewUsageRecord("post", now)
	rec.Increment()

	// Exactly at resetAt counts as expired.
	boundary := now.Add(15 * time.Minute)
	rec.ResetExpired(boundary)
	if got := rec.Windows[Window15Min].Count; got != 0 {
		t.Fatalf("expected reset at boundary, got count %d", got)
	}
	if got := rec.Windows[Window1Hr].Count; got != 1 {
		t.Fatalf("expected 1h window untouched at 15m boundary, got %d", got)
	}
}

func TestUsageRecord_JSONRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := NewUsageRecord("post", now)
	rec.Increment()

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The stored shape keys windows by their stable names.
	var raw map[string]WindowCounter
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	for _, key := range []string{"window15min", "window1hr", "window24hr", "window30days"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing stored window key %s", key)
		}
	}

	var restored UsageRecord
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	if restored.Windows[Window24Hr] != rec.Windows[Window24Hr] {
		t.Fatalf("round trip mismatch: %+v vs %+v", restored.Windows[Window24Hr], rec.Windows[Window24Hr])
	}
}
