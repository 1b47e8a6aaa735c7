package core

import (
	"encoding/json"
	"time"
)

// WindowName identifies one of the fixed usage windows. The names double as
// JSON keys in the persisted record, so they must stay stable.
type WindowName string

const (
	Window15Min  WindowName = "window15min"
	Window1Hr    WindowName = "window1hr"
	Window24Hr   WindowName = "window24hr"
	Window30Days WindowName = "window30days"
)

// WindowOrder lists the windows shortest first.
var WindowOrder = []WindowName{Window15Min, Window1Hr, Window24Hr, Window30Days}

// WindowDurations maps each window to its fixed span.
var WindowDurations = map[WindowName]time.Duration{
	Window15Min:  15 * time.Minute,
	Window1Hr:    time.Hour,
	Window24Hr:   24 * time.Hour,
	Window30Days: 30 * 24 * time.Hour,
}

// WindowCounter is one count/reset pair for one fixed window. ResetAt is an
// epoch-millisecond timestamp for storage-format compatibility.
type WindowCounter struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"resetAt"`
}

// UsageRecord tracks consumption of one metric across all windows.
type UsageRecord struct {
	MetricKey string                       `json:"-"`
	Windows   map[WindowName]WindowCounter `json:"-"`
}

// NewUsageRecord returns a record with every window freshly started at now.
func NewUsageRecord(metricKey string, now time.Time) *UsageRecord {
	rec := &UsageRecord{
		MetricKey: metricKey,
		Windows:   make(map[WindowName]WindowCounter, len(WindowOrder)),
	}
	for _, name := range WindowOrder {
		rec.Windows[name] = freshWindow(name, now)
	}
	return rec
}

// ResetExpired independently restarts every window whose reset time has
// passed. Windows are not nested: a 15-minute reset leaves the others alone.
func (r *UsageRecord) ResetExpired(now time.Time) {
	nowMs := now.UnixMilli()
	for _, name := range WindowOrder {
		if w, ok := r.Windows[name]; !ok || nowMs >= w.ResetAt {
			r.Windows[name] = freshWindow(name, now)
		}
	}
}

// Increment bumps every window's count by one.
func (r *UsageRecord) Increment() {
	for _, name := range WindowOrder {
		w := r.Windows[name]
		w.Count++
		r.Windows[name] = w
	}
}

func freshWindow(name WindowName, now time.Time) WindowCounter {
	return WindowCounter{Count: 0, ResetAt: now.Add(WindowDurations[name]).UnixMilli()}
}

// MarshalJSON serializes the record in its stored shape: one object with the
// four window sub-objects keyed by window name.
func (r *UsageRecord) MarshalJSON() ([]byte, error) {
	out := make(map[WindowName]WindowCounter, len(r.Windows))
	for name, w := range r.Windows {
		out[name] = w
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a record from its stored shape. Unknown window keys
// are dropped; missing windows are left absent and recreated on the next
// ResetExpired.
func (r *UsageRecord) UnmarshalJSON(data []byte) error {
	var raw map[WindowName]WindowCounter
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Windows = make(map[WindowName]WindowCounter, len(WindowOrder))
	for _, name := range WindowOrder {
		if w, ok := raw[name]; ok {
			r.Windows[name] = w
		}
	}
	return nil
}
