package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cacher300/Massive-Webscraping-operation/internal/grid"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testTile = grid.Tile{Top: 40.55, Bottom: 40.0, Left: -105.0, Right: -104.48}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientOptions{
		BaseURL:     baseURL,
		Env:         "na",
		Types:       "alerts,traffic",
		Timeout:     5 * time.Second,
		Backoff:     10 * time.Millisecond,
		MaxAttempts: 3,
	})
}

func TestFetchTile_QueryParameters(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = map[string]string{
			"top": q.Get("top"), "bottom": q.Get("bottom"),
			"left": q.Get("left"), "right": q.Get("right"),
			"env": q.Get("env"), "types": q.Get("types"),
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	require.NoError(t, err)

	assert.Equal(t, "40.55", got["top"])
	assert.Equal(t, "40", got["bottom"])
	assert.Equal(t, "-105", got["left"])
	assert.Equal(t, "-104.48", got["right"])
	assert.Equal(t, "na", got["env"])
	assert.Equal(t, "alerts,traffic", got["types"])
}

func TestFetchTile_ParsesAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts":[
			{"uuid":"u1","type":"POLICE","location":{"x":-104.9,"y":40.2},"pubMillis":1700000000000},
			{"uuid":"u2","type":"ACCIDENT","location":{"x":-104.8,"y":40.3},"pubMillis":1700000001000}
		]}`))
	}))
	defer srv.Close()

	alerts, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "u1", alerts[0].UUID)
	assert.Equal(t, -104.9, alerts[0].Location.X)
	assert.Equal(t, 40.2, alerts[0].Location.Y)
	assert.Equal(t, int64(1700000000000), alerts[0].PubMillis)
}

func TestFetchTile_NoAlertsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jams":[]}`))
	}))
	defer srv.Close()

	alerts, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

// A 429 is retried and the eventual 200 is returned exactly once.
func TestFetchTile_RateLimitThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"alerts":[{"uuid":"u1","type":"POLICE"}]}`))
	}))
	defer srv.Close()

	alerts, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "u1", alerts[0].UUID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchTile_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrRateLimited))
	assert.Equal(t, int32(3), calls.Load())
}

// Non-429 failures abandon the tile immediately, with no retry.
func TestFetchTile_ServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrRateLimited))
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchTile_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"alerts": [`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	assert.Error(t, err)
}

func TestFetchTile_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := newTestClient(srv.URL).FetchTile(context.Background(), testTile)
	assert.Error(t, err)
}

func TestFetchTile_CancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		BaseURL:     srv.URL,
		Backoff:     10 * time.Second,
		MaxAttempts: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchTile(ctx, testTile)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancellation must interrupt the backoff sleep")
}
