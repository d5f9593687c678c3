package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cacher300/Massive-Webscraping-operation/internal/grid"
)

// ErrRateLimited is returned when the upstream answered 429 on every attempt
// for a tile. It is distinct from a clean empty result so the orchestrator
// can count stalled tiles separately from quiet ones.
var ErrRateLimited = eris.New("feed: rate limited, retries exhausted")

// ClientOptions configures the feed client.
type ClientOptions struct {
	// BaseURL is the georss endpoint, without query parameters.
	BaseURL string
	// Env is the fixed upstream region code (e.g. "na").
	Env string
	// Types is the fixed comma-joined feed-type list (e.g. "alerts,traffic").
	Types string
	// UserAgent is sent on every request.
	UserAgent string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Backoff is the fixed delay before retrying a 429 response. The
	// upstream signals throttling with a plain 429 and no Retry-After, so a
	// constant interval is all there is to honor.
	Backoff time.Duration
	// MaxAttempts caps 429 retries per tile (including the first try) so a
	// sustained throttle cannot stall a sweep indefinitely.
	MaxAttempts int
}

// Client fetches one tile's alerts per call. All failure modes come back as
// errors; the caller abandons the tile for the sweep and moves on.
type Client struct {
	http *http.Client
	opts ClientOptions
}

// NewClient creates a feed client with defaults applied.
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.waze.com/live-map/api/georss"
	}
	if opts.Env == "" {
		opts.Env = "na"
	}
	if opts.Types == "" {
		opts.Types = "alerts,traffic"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "alertsweep/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 4 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 8
	}
	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
	}
}

// tileURL encodes the tile bounds and fixed feed parameters.
func (c *Client) tileURL(t grid.Tile) string {
	q := url.Values{}
	q.Set("top", fmt.Sprintf("%v", t.Top))
	q.Set("bottom", fmt.Sprintf("%v", t.Bottom))
	q.Set("left", fmt.Sprintf("%v", t.Left))
	q.Set("right", fmt.Sprintf("%v", t.Right))
	q.Set("env", c.opts.Env)
	q.Set("types", c.opts.Types)
	return c.opts.BaseURL + "?" + q.Encode()
}

// FetchTile retrieves one tile's raw alert set. A 200 with no alerts array
// returns nil, nil. A 429 is retried at a fixed interval up to MaxAttempts,
// then surfaces ErrRateLimited. Any other status, a transport failure, or a
// parse failure returns a wrapped error; the tile is not retried.
func (c *Client) FetchTile(ctx context.Context, tile grid.Tile) ([]Alert, error) {
	rawURL := c.tileURL(tile)
	log := zap.L().With(zap.String("component", "feed.client"), zap.String("url", rawURL))

	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "feed: create request")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "feed: fetch tile top=%v left=%v", tile.Top, tile.Left)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if attempt >= c.opts.MaxAttempts {
				log.Warn("rate limited, giving up on tile", zap.Int("attempts", attempt))
				return nil, ErrRateLimited
			}
			log.Warn("rate limited (429), backing off",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", c.opts.Backoff),
			)
			if err := sleep(ctx, c.opts.Backoff); err != nil {
				return nil, eris.Wrap(err, "feed: backoff interrupted")
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("feed: unexpected status %d for tile top=%v left=%v",
				resp.StatusCode, tile.Top, tile.Left)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, eris.Wrap(err, "feed: read response body")
		}

		alerts, err := decodeEnvelope(body)
		if err != nil {
			return nil, eris.Wrapf(err, "feed: decode tile top=%v left=%v", tile.Top, tile.Left)
		}
		return alerts, nil
	}
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
