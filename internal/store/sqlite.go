package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/cacher300/Massive-Webscraping-operation/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS alerts (
	uuid            TEXT PRIMARY KEY,
	country         TEXT,
	inscale         BOOLEAN,
	city            TEXT,
	report_rating   INTEGER,
	report_by_municipality_user BOOLEAN,
	confidence      INTEGER,
	reliability     INTEGER,
	type            TEXT,
	speed           INTEGER,
	report_mood     INTEGER,
	road_type       INTEGER,
	magvar          INTEGER,
	street          TEXT,
	additional_info TEXT,
	location_x      REAL,
	location_y      REAL,
	pub_millis      INTEGER,
	timestamp       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS import_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	timestamp   DATETIME NOT NULL,
	alert_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_pub_millis ON alerts(pub_millis);
CREATE INDEX IF NOT EXISTS idx_import_log_timestamp ON import_log(timestamp);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteInsertAlert = `
INSERT OR IGNORE INTO alerts (
	uuid, country, inscale, city, report_rating, report_by_municipality_user,
	confidence, reliability, type, speed, report_mood, road_type, magvar,
	street, additional_info, location_x, location_y, pub_millis, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) InsertAlerts(ctx context.Context, alerts []model.Alert) (int64, error) {
	if len(alerts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertAlert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var inserted int64
	for _, a := range alerts {
		res, err := stmt.ExecContext(ctx,
			a.UUID, a.Country, a.InScale, a.City, a.ReportRating, a.ReportByMunicipalityUser,
			a.Confidence, a.Reliability, a.Type, nullInt(a.Speed), nullInt(a.ReportMood),
			a.RoadType, a.Magvar, a.Street, a.AdditionalInfo,
			a.LocationX, a.LocationY, a.PubMillis, a.Timestamp.UTC(),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert alert %s", a.UUID)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert tx")
	}

	zap.L().Debug("alert batch committed",
		zap.Int("presented", len(alerts)),
		zap.Int64("new", inserted),
	)
	return int64(len(alerts)), nil
}

func (s *SQLiteStore) RecordSweep(ctx context.Context, runID string, count int, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO import_log (run_id, timestamp, alert_count) VALUES (?, ?, ?)`,
		runID, at.UTC(), count,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: record sweep")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: sweep id")
	}
	return id, nil
}

func (s *SQLiteStore) CountAlerts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count alerts")
}

func (s *SQLiteStore) LastSweep(ctx context.Context) (*model.SweepEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, timestamp, alert_count FROM import_log ORDER BY id DESC LIMIT 1`,
	)
	var e model.SweepEntry
	err := row.Scan(&e.ID, &e.RunID, &e.Timestamp, &e.AlertCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last sweep")
	}
	return &e, nil
}

func (s *SQLiteStore) ListSweeps(ctx context.Context, limit int) ([]model.SweepEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, timestamp, alert_count FROM import_log ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sweeps")
	}
	defer rows.Close()

	var entries []model.SweepEntry
	for rows.Next() {
		var e model.SweepEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Timestamp, &e.AlertCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sweep")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list sweeps iterate")
}

// nullInt maps an optional integer to a SQL NULL when absent.
func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
