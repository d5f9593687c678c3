package sweep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cacher300/Massive-Webscraping-operation/internal/feed"
	"github.com/cacher300/Massive-Webscraping-operation/internal/grid"
	"github.com/cacher300/Massive-Webscraping-operation/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var (
	tileA = grid.Tile{Top: 41, Bottom: 40, Left: -105, Right: -104}
	tileB = grid.Tile{Top: 40, Bottom: 39, Left: -105, Right: -104}
)

// fakeFetcher serves canned alerts keyed by the tile's top-left corner.
type fakeFetcher struct {
	responses map[grid.Tile][]feed.Alert
	errs      map[grid.Tile]error
	calls     atomic.Int32
}

func (f *fakeFetcher) FetchTile(_ context.Context, tile grid.Tile) ([]feed.Alert, error) {
	f.calls.Add(1)
	if err, ok := f.errs[tile]; ok {
		return nil, err
	}
	return f.responses[tile], nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestOrchestrator(f Fetcher, st store.Store) *Orchestrator {
	return New(f, st, Options{Pace: time.Millisecond, RunID: "test-run"})
}

func TestRunSweep_IngestsFilteredBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[grid.Tile][]feed.Alert{
			tileA: {
				{UUID: "u1", Type: feed.TypePolice, Location: feed.Location{X: -104.5, Y: 40.5}},
				{UUID: "u2", Type: feed.TypePolice, Location: feed.Location{X: -104.6, Y: 40.6}},
				{UUID: "x1", Type: "ACCIDENT"},
			},
			tileB: nil,
		},
	}
	st := newTestStore(t)
	orch := newTestOrchestrator(fetcher, st)

	res, err := orch.RunSweep(context.Background(), []grid.Tile{tileA, tileB})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TilesPlanned)
	assert.Equal(t, 2, res.TilesFetched)
	assert.Zero(t, res.TilesFailed)
	assert.Equal(t, 3, res.RecordsSeen)
	assert.Equal(t, 2, res.RecordsMatched)

	total, err := st.CountAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	last, err := st.LastSweep(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 2, last.AlertCount)
	assert.Equal(t, "test-run", last.RunID)
}

// A second identical sweep adds no rows but still appends a sweep-log entry.
func TestRunSweep_RerunDeduplicates(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[grid.Tile][]feed.Alert{
			tileA: {
				{UUID: "u1", Type: feed.TypePolice},
				{UUID: "u2", Type: feed.TypePolice},
			},
		},
	}
	st := newTestStore(t)
	orch := newTestOrchestrator(fetcher, st)
	ctx := context.Background()
	tiles := []grid.Tile{tileA, tileB}

	_, err := orch.RunSweep(ctx, tiles)
	require.NoError(t, err)
	res2, err := orch.RunSweep(ctx, tiles)
	require.NoError(t, err)

	assert.Equal(t, 2, res2.RecordsMatched, "the batch is still presented in full")

	total, err := st.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "no duplicate rows across sweeps")

	entries, err := st.ListSweeps(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "sweep log is append-only regardless of dedup")
}

func TestRunSweep_AbandonsFailedTiles(t *testing.T) {
	fetcher := &fakeFetcher{
		responses: map[grid.Tile][]feed.Alert{
			tileB: {{UUID: "u9", Type: feed.TypePolice}},
		},
		errs: map[grid.Tile]error{
			tileA: eris.New("feed: unexpected status 503"),
		},
	}
	st := newTestStore(t)
	orch := newTestOrchestrator(fetcher, st)

	res, err := orch.RunSweep(context.Background(), []grid.Tile{tileA, tileB})
	require.NoError(t, err, "a failed tile must not fail the sweep")

	assert.Equal(t, 1, res.TilesFailed)
	assert.Zero(t, res.TilesThrottled)
	assert.Equal(t, 1, res.TilesFetched)
	assert.Equal(t, 1, res.RecordsMatched)
}

func TestRunSweep_CountsThrottledTiles(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[grid.Tile]error{tileA: feed.ErrRateLimited},
	}
	st := newTestStore(t)
	orch := newTestOrchestrator(fetcher, st)

	res, err := orch.RunSweep(context.Background(), []grid.Tile{tileA})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TilesThrottled)
	assert.Equal(t, 1, res.TilesFailed)
}

func TestRunSweep_EmptyGridStillLogsSweep(t *testing.T) {
	st := newTestStore(t)
	orch := newTestOrchestrator(&fakeFetcher{}, st)

	res, err := orch.RunSweep(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.RecordsMatched)

	entries, err := st.ListSweeps(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunSweep_CancelledBetweenTiles(t *testing.T) {
	fetcher := &fakeFetcher{}
	st := newTestStore(t)
	orch := newTestOrchestrator(fetcher, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.RunSweep(ctx, []grid.Tile{tileA, tileB})
	require.Error(t, err)

	// Nothing partial was persisted.
	entries, err := st.ListSweeps(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunLoop_StopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{}
	st := newTestStore(t)
	orch := newTestOrchestrator(fetcher, st)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := orch.RunLoop(ctx, []grid.Tile{tileA}, 10*time.Millisecond)
	require.NoError(t, err, "cancellation is a clean stop, not an error")

	// At least one full sweep completed before the deadline.
	entries, err := st.ListSweeps(context.Background(), 100)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

// Full pass through the real feed client against a mocked upstream.
func TestSweep_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("top") == "41" {
			w.Write([]byte(`{"alerts":[
				{"uuid":"u1","type":"POLICE","reportByMunicipalityUser":"true","location":{"x":-104.5,"y":40.5},"pubMillis":1700000000000},
				{"uuid":"u2","type":"POLICE","location":{"x":-104.6,"y":40.6},"pubMillis":1700000001000},
				{"uuid":"x1","type":"ACCIDENT","location":{"x":-104.7,"y":40.7}}
			]}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := feed.NewClient(feed.ClientOptions{
		BaseURL: srv.URL,
		Backoff: time.Millisecond,
	})
	st := newTestStore(t)
	orch := newTestOrchestrator(client, st)
	ctx := context.Background()
	tiles := []grid.Tile{tileA, tileB}

	res, err := orch.RunSweep(ctx, tiles)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordsMatched)

	total, err := st.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Second sweep over the same upstream data: no new rows, one more log entry.
	_, err = orch.RunSweep(ctx, tiles)
	require.NoError(t, err)

	total, err = st.CountAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	entries, err := st.ListSweeps(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
