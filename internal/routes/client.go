package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/j4v3l/skydeck/pkg/logger"
)

// Client is the route lookup worker. It receives request batches from the
// engine loop, queries the route service, and delivers results or error
// text back on its output channel. Network pacing and timeouts live here,
// not in the engine.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *logger.Logger
}

// NewClient creates a route worker for the given adsbdb-compatible base
// URL. minInterval spaces consecutive batch requests.
func NewClient(baseURL string, timeout, minInterval time.Duration, log *logger.Logger) *Client {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		logger:  log.Named("routes"),
	}
}

// Run consumes request batches until the context is cancelled.
func (c *Client) Run(ctx context.Context, in <-chan []Request, out chan<- Message) {
	c.logger.Info("Route worker started", logger.String("base_url", c.baseURL))

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-in:
			if len(batch) == 0 {
				continue
			}
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}

			var msg Message
			results, err := c.FetchBatch(ctx, batch)
			if err != nil {
				msg = Message{Err: err.Error()}
				c.logger.Warn("Route fetch failed", logger.Error(err))
			} else {
				msg = Message{Results: results}
				c.logger.Debug("Route fetch ok", logger.Int("result_count", len(results)))
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

type routesetPlane struct {
	Callsign string  `json:"callsign"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type routesetPayload struct {
	Planes []routesetPlane `json:"planes"`
}

// FetchBatch performs one routeset lookup for a batch of aircraft.
func (c *Client) FetchBatch(ctx context.Context, batch []Request) ([]Result, error) {
	payload := routesetPayload{Planes: make([]routesetPlane, 0, len(batch))}
	for _, req := range batch {
		callsign := strings.ToUpper(strings.TrimSpace(req.Callsign))
		if callsign == "" {
			continue
		}
		payload.Planes = append(payload.Planes, routesetPlane{
			Callsign: callsign,
			Lat:      req.Lat,
			Lng:      req.Lon,
		})
	}
	if len(payload.Planes) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode routeset payload: %w", err)
	}

	url := c.baseURL + "/api/0/routeset"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The status code and any Retry-After hint go into the error text;
		// the cache's backoff logic reads both from there.
		if hint := strings.TrimSpace(resp.Header.Get("Retry-After")); hint != "" {
			return nil, fmt.Errorf("route HTTP %d retry-after=%ss", resp.StatusCode, hint)
		}
		return nil, fmt.Errorf("route HTTP %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	results, err := ParseRoutes(respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse route response: %w", err)
	}
	return results, nil
}
