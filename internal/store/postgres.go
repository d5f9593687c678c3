package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cacher300/Massive-Webscraping-operation/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which keeps the Postgres backend testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	location_x      DOUBLE PRECISION,
	location_y      DOUBLE PRECISION,
	pub_millis      BIGINT,
	timestamp       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS import_log (
	id          BIGSERIAL PRIMARY KEY,
	run_id      TEXT NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL,
	alert_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_pub_millis ON alerts(pub_millis);
CREATE INDEX IF NOT EXISTS idx_import_log_timestamp ON import_log(timestamp);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresInsertAlert = `
INSERT INTO alerts (
	uuid, country, inscale, city, report_rating, report_by_municipality_user,
	confidence, reliability, type, speed, report_mood, road_type, magvar,
	street, additional_info, location_x, location_y, pub_millis, timestamp
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (uuid) DO NOTHING`

func (s *PostgresStore) InsertAlerts(ctx context.Context, alerts []model.Alert) (int64, error) {
	if len(alerts) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin insert tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var inserted int64
	for _, a := range alerts {
		tag, err := tx.Exec(ctx, postgresInsertAlert,
			a.UUID, a.Country, a.InScale, a.City, a.ReportRating, a.ReportByMunicipalityUser,
			a.Confidence, a.Reliability, a.Type, a.Speed, a.ReportMood,
			a.RoadType, a.Magvar, a.Street, a.AdditionalInfo,
			a.LocationX, a.LocationY, a.PubMillis, a.Timestamp.UTC(),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: insert alert %s", a.UUID)
		}
		inserted += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit insert tx")
	}

	zap.L().Debug("alert batch committed",
		zap.Int("presented", len(alerts)),
		zap.Int64("new", inserted),
	)
	return int64(len(alerts)), nil
}

func (s *PostgresStore) RecordSweep(ctx context.Context, runID string, count int, at time.Time) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO import_log (run_id, timestamp, alert_count) VALUES ($1, $2, $3) RETURNING id`,
		runID, at.UTC(), count,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: record sweep")
	}
	return id, nil
}

func (s *PostgresStore) CountAlerts(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count alerts")
}

func (s *PostgresStore) LastSweep(ctx context.Context) (*model.SweepEntry, error) {
	var e model.SweepEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, run_id, timestamp, alert_count FROM import_log ORDER BY id DESC LIMIT 1`,
	).Scan(&e.ID, &e.RunID, &e.Timestamp, &e.AlertCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last sweep")
	}
	return &e, nil
}

func (s *PostgresStore) ListSweeps(ctx context.Context, limit int) ([]model.SweepEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, timestamp, alert_count FROM import_log ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sweeps")
	}
	defer rows.Close()

	var entries []model.SweepEntry
	for rows.Next() {
		var e model.SweepEntry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Timestamp, &e.AlertCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan sweep")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list sweeps iterate")
}
