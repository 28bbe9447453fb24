package usage

import (
	"context"
	"fmt"
	"time"
)

// Store is the persistence surface the ledger needs; GraphStore
// implementations satisfy it directly so this package never imports
// pkg/graphstore (avoiding a dependency cycle between metering and
// storage).
type Store interface {
	RecordUsageEvent(ctx context.Context, event Event) error
	SumUsageSince(ctx context.Context, tenantID string, since time.Time) (Totals, error)
}

// Ledger appends metered events and answers windowed aggregate queries.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger wires a Ledger against store. now defaults to time.Now and is
// overridable in tests.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Record appends one metered call. Recording never blocks the pipeline
// stage it meters — the runner discards its error rather than aborting.
func (l *Ledger) Record(ctx context.Context, event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now()
	}
	if err := l.store.RecordUsageEvent(ctx, event); err != nil {
		return fmt.Errorf("usage: record event: %w", err)
	}
	return nil
}

// TotalsSince sums every event for tenantID since the given time.
func (l *Ledger) TotalsSince(ctx context.Context, tenantID string, since time.Time) (Totals, error) {
	totals, err := l.store.SumUsageSince(ctx, tenantID, since)
	if err != nil {
		return Totals{}, fmt.Errorf("usage: sum since %s: %w", since, err)
	}
	return totals, nil
}

// windowStart returns the start of the given window relative to now.
func windowStart(now time.Time, w Window) time.Time {
	switch w {
	case WindowDaily:
		return now.AddDate(0, 0, -1)
	case WindowMonthly:
		return now.AddDate(0, -1, 0)
	default:
		return now
	}
}
