// Package usage implements multi-window rate-usage accounting against
// third-party API quotas.
package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/mlorenz/socialflow/internal/core"
)

// Well-known metric keys.
const (
	MetricPost = "post"
	MetricRead = "read"
)

// Ledger tracks consumption per metric key across four fixed quota windows
// (15m/1h/24h/30d), approximating tiered third-party rate limits with a
// single write path.
//
// The windows are fixed, not sliding: a count resets only when its own reset
// time passes, then a fresh period of the same duration starts from that
// moment. Bursts straddling a reset boundary are under-detected.
//
// Record is best-effort metering. The load/modify/store sequence is not
// atomic; two concurrent calls for the same metric can lose an increment.
// There is no locking or retry here, and no failure ever reaches the caller.
type Ledger struct {
	store  core.UsageStore
	logger *slog.Logger
	now    func() time.Time
}

// Option configures the ledger.
type Option func(*Ledger)

// WithLogger sets the ledger logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(store core.UsageStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record counts one unit of consumption against every window of the metric.
// It never fails: metering must not abort the business action it accompanies,
// so persistence errors are logged and swallowed.
func (l *Ledger) Record(ctx context.Context, metricKey string) {
	now := l.now()

	rec, err := l.store.GetUsage(ctx, metricKey)
	if err != nil {
		l.logger.Error("failed to load usage record", "metric", metricKey, "error", err)
		return
	}
	if rec == nil {
		rec = core.NewUsageRecord(metricKey, now)
	} else {
		rec.MetricKey = metricKey
		rec.ResetExpired(now)
	}

	rec.Increment()

	if err := l.store.PutUsage(ctx, rec); err != nil {
		l.logger.Error("failed to persist usage record", "metric", metricKey, "error", err)
		return
	}

	l.logger.Debug("tracked usage", "metric", metricKey,
		"count_15m", rec.Windows[core.Window15Min].Count,
		"count_30d", rec.Windows[core.Window30Days].Count)
}

// Snapshot returns the current record for a metric with expired windows
// reset for reading. The adjustment is not persisted. A metric that was
// never recorded yields a fresh all-zero record.
func (l *Ledger) Snapshot(ctx context.Context, metricKey string) (*core.UsageRecord, error) {
	now := l.now()

	rec, err := l.store.GetUsage(ctx, metricKey)
	if err != nil {
		return nil, core.ErrInternal("loading usage record").WithCause(err)
	}
	if rec == nil {
		return core.NewUsageRecord(metricKey, now), nil
	}
	rec.MetricKey = metricKey
	rec.ResetExpired(now)
	return rec, nil
}

// Verify that Ledger satisfies the fire-and-forget contract.
var _ core.UsageRecorder = (*Ledger)(nil)
