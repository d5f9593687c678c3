// Package store persists harvested alerts with insert-or-ignore deduplication
// and keeps the per-sweep import log.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cacher300/Massive-Webscraping-operation/internal/model"
)

// Store is the persistence interface for the harvester. Alerts are
// append-only and deduplicated on their upstream UUID: re-presenting a known
// UUID is a silent no-op, never an update and never an error.
type Store interface {
	// InsertAlerts writes the batch in a single transaction and returns the
	// number of alerts presented. Rows already present are skipped; the
	// first write's field values persist.
	InsertAlerts(ctx context.Context, alerts []model.Alert) (int64, error)

	// RecordSweep appends one import_log row and returns its id. The log is
	// append-only: a sweep that ingested nothing new still gets a row.
	RecordSweep(ctx context.Context, runID string, count int, at time.Time) (int64, error)

	// CountAlerts returns the total number of stored alerts.
	CountAlerts(ctx context.Context) (int64, error)

	// LastSweep returns the most recent import_log row, or nil if none exist.
	LastSweep(ctx context.Context) (*model.SweepEntry, error)

	// ListSweeps returns up to limit import_log rows, most recent first.
	ListSweeps(ctx context.Context, limit int) ([]model.SweepEntry, error)

	// Migrate creates the schema if absent. Safe to run on every startup.
	Migrate(ctx context.Context) error

	Close() error
}

// Open dispatches on the configured driver. The handle is opened once at
// startup, shared by batch insert and import-log writes, and closed by the
// owning command on all exit paths.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	}
	return nil, eris.Errorf("store: unknown driver %q", driver)
}
