// Package sweep drives one full pass over the planned tile grid and commits
// the accumulated batch in a single ingestion transaction.
package sweep

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cacher300/Massive-Webscraping-operation/internal/feed"
	"github.com/cacher300/Massive-Webscraping-operation/internal/grid"
	"github.com/cacher300/Massive-Webscraping-operation/internal/model"
	"github.com/cacher300/Massive-Webscraping-operation/internal/store"
)

// Fetcher retrieves one tile's raw alert set.
type Fetcher interface {
	FetchTile(ctx context.Context, tile grid.Tile) ([]feed.Alert, error)
}

// Options configures the orchestrator.
type Options struct {
	// Pace is the fixed delay enforced between consecutive tile requests.
	// It keeps the sweep under the upstream's implicit rate limit and is
	// independent of the 429 backoff inside the fetcher.
	Pace time.Duration
	// RunID identifies this process in import_log rows.
	RunID string
}

// Orchestrator runs sweeps on a single worker: tile fetches are strictly
// sequential, so storage and the accumulator need no locking.
type Orchestrator struct {
	fetcher Fetcher
	store   store.Store
	pace    *rate.Limiter
	runID   string
	log     *zap.Logger
}

// Result summarizes one completed sweep.
type Result struct {
	TilesPlanned   int           `json:"tiles_planned"`
	TilesFetched   int           `json:"tiles_fetched"`
	TilesFailed    int           `json:"tiles_failed"`
	TilesThrottled int           `json:"tiles_throttled"`
	RecordsSeen    int           `json:"records_seen"`
	RecordsMatched int           `json:"records_matched"`
	SweepID        int64         `json:"sweep_id"`
	Elapsed        time.Duration `json:"elapsed"`
}

// New creates an orchestrator with defaults applied.
func New(fetcher Fetcher, st store.Store, opts Options) *Orchestrator {
	if opts.Pace <= 0 {
		opts.Pace = 300 * time.Millisecond
	}
	return &Orchestrator{
		fetcher: fetcher,
		store:   st,
		pace:    rate.NewLimiter(rate.Every(opts.Pace), 1),
		runID:   opts.RunID,
		log:     zap.L().With(zap.String("component", "sweep.orchestrator")),
	}
}

// RunSweep fetches every tile in order, filters survivors into one in-memory
// batch, and commits the batch plus an import_log row at the end. A failed
// tile is abandoned for this sweep; only a storage failure aborts the sweep,
// which is safe because sweeps are idempotent and can simply be re-run.
func (o *Orchestrator) RunSweep(ctx context.Context, tiles []grid.Tile) (*Result, error) {
	start := time.Now()
	observedAt := start.UTC()
	res := &Result{TilesPlanned: len(tiles)}

	var batch []model.Alert
	for _, tile := range tiles {
		if err := o.pace.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "sweep: cancelled")
		}

		alerts, err := o.fetcher.FetchTile(ctx, tile)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "sweep: cancelled")
			}
			if eris.Is(err, feed.ErrRateLimited) {
				res.TilesThrottled++
			}
			res.TilesFailed++
			o.log.Warn("tile abandoned",
				zap.Float64("top", tile.Top),
				zap.Float64("left", tile.Left),
				zap.Error(err),
			)
			continue
		}

		res.TilesFetched++
		res.RecordsSeen += len(alerts)
		batch = append(batch, feed.FilterPolice(alerts, observedAt)...)
	}
	res.RecordsMatched = len(batch)

	if _, err := o.store.InsertAlerts(ctx, batch); err != nil {
		return nil, eris.Wrap(err, "sweep: ingest batch")
	}
	sweepID, err := o.store.RecordSweep(ctx, o.runID, len(batch), observedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sweep: record sweep")
	}
	res.SweepID = sweepID
	res.Elapsed = time.Since(start)

	o.log.Info("sweep complete",
		zap.Int64("sweep_id", res.SweepID),
		zap.Int("tiles_planned", res.TilesPlanned),
		zap.Int("tiles_fetched", res.TilesFetched),
		zap.Int("tiles_failed", res.TilesFailed),
		zap.Int("tiles_throttled", res.TilesThrottled),
		zap.Int("records_seen", res.RecordsSeen),
		zap.Int("records_matched", res.RecordsMatched),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// RunLoop repeats sweeps until the context is cancelled, waiting at least
// minInterval between the end of one sweep and the start of the next. A
// cancelled in-flight sweep returns without ingesting its partial buffer, so
// storage only ever sees whole sweeps.
func (o *Orchestrator) RunLoop(ctx context.Context, tiles []grid.Tile, minInterval time.Duration) error {
	for {
		if _, err := o.RunSweep(ctx, tiles); err != nil {
			if ctx.Err() != nil {
				o.log.Info("sweep loop stopped")
				return nil
			}
			return err
		}

		t := time.NewTimer(minInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			o.log.Info("sweep loop stopped")
			return nil
		case <-t.C:
		}
	}
}
