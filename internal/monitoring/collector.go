// Package monitoring exposes a point-in-time health view over the store.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cacher300/Massive-Webscraping-operation/internal/store"
)

// Snapshot holds a point-in-time view of harvest progress.
type Snapshot struct {
	TotalAlerts    int64      `json:"total_alerts"`
	SweepCount     int64      `json:"sweep_count"`
	LastSweepAt    *time.Time `json:"last_sweep_at,omitempty"`
	LastSweepCount *int       `json:"last_sweep_count,omitempty"`
	LastRunID      string     `json:"last_run_id,omitempty"`
	CollectedAt    time.Time  `json:"collected_at"`
}

// Collector gathers snapshots from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector over the given store.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of stored alerts and sweep history.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{CollectedAt: time.Now().UTC()}

	total, err := c.store.CountAlerts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count alerts")
	}
	snap.TotalAlerts = total

	last, err := c.store.LastSweep(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: last sweep")
	}
	if last != nil {
		snap.SweepCount = last.ID
		ts := last.Timestamp
		count := last.AlertCount
		snap.LastSweepAt = &ts
		snap.LastSweepCount = &count
		snap.LastRunID = last.RunID
	}

	return snap, nil
}
