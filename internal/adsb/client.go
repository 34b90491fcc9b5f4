package adsb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/j4v3l/skydeck/pkg/logger"
)

// Result is one feed poll outcome delivered to the engine loop. Exactly one
// of Snapshot or Err is set.
type Result struct {
	Snapshot *Snapshot
	Err      string
}

// Client polls the ADS-B JSON feed on a fixed interval and delivers results
// in arrival order on a channel owned by the engine loop.
type Client struct {
	httpClient *http.Client
	url        string
	interval   time.Duration
	logger     *logger.Logger
}

// NewClient creates a feed client for the given URL.
func NewClient(url string, interval, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url:      url,
		interval: interval,
		logger:   log.Named("feed"),
	}
}

// Run polls until the context is cancelled. Failures are reported as Result
// values rather than aborting the loop; the feed recovering on its own is
// the normal case.
func (c *Client) Run(ctx context.Context, out chan<- Result) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("Feed poller started",
		logger.String("url", c.url),
		logger.Duration("interval", c.interval),
	)

	for {
		snap, err := c.Fetch(ctx)
		var res Result
		if err != nil {
			res = Result{Err: err.Error()}
			c.logger.Warn("Feed fetch failed", logger.Error(err))
		} else {
			res = Result{Snapshot: snap}
		}

		select {
		case out <- res:
		case <-ctx.Done():
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Fetch performs a single feed request.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	c.logger.Debug("Fetched feed snapshot",
		logger.Int("aircraft_count", len(snap.Aircraft)),
	)
	return &snap, nil
}
