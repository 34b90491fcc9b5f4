package routes

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
)

const (
	maxBackoff        = 5 * time.Minute
	maxBackoffShift   = 7
	minPendingWindow  = 2 * time.Second
	maxPendingWindow  = 10 * time.Second
	defaultBatchLimit = 20
)

// Entry is one cached route, keyed by normalized callsign.
type Entry struct {
	Callsign    string    `json:"callsign"`
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Route       string    `json:"route,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Text returns the display form of a route: "origin-destination" when both
// ends are known, otherwise whatever free text the provider gave.
func (e *Entry) Text() string {
	if e.Origin != "" && e.Destination != "" {
		return e.Origin + "-" + e.Destination
	}
	return e.Route
}

// Request is one outgoing lookup handed to the route worker.
type Request struct {
	Callsign string  `json:"callsign"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lng"`
}

// Message is one route worker delivery. Exactly one of Results or Err is
// meaningful.
type Message struct {
	Results []Result
	Err     string
}

// Cache is a TTL route cache with request throttling and rate-limit
// backoff. It is owned by the engine loop and is not safe for concurrent
// use.
type Cache struct {
	enabled bool
	ttl     time.Duration
	refresh time.Duration

	entries     map[string]Entry
	lastRequest map[string]time.Time

	failures     int
	backoffUntil time.Time
	lastError    string
	lastErrorAt  time.Time
}

// NewCache creates a route cache. ttl bounds entry freshness; refresh
// bounds how often the same callsign may be requested.
func NewCache(enabled bool, ttl, refresh time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if refresh <= 0 {
		refresh = 15 * time.Second
	}
	return &Cache{
		enabled:     enabled,
		ttl:         ttl,
		refresh:     refresh,
		entries:     make(map[string]Entry),
		lastRequest: make(map[string]time.Time),
	}
}

// Enabled reports whether lookups are globally enabled.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// CollectRequests returns up to batchLimit lookup requests for aircraft
// needing a route: non-blank callsign, no fresh cache entry, and no
// request already issued inside the refresh window. Returns nothing while
// lookups are disabled or a backoff deadline is in effect.
func (c *Cache) CollectRequests(aircraft []adsb.Aircraft, now time.Time, batchLimit int) []Request {
	if !c.enabled || now.Before(c.backoffUntil) {
		return nil
	}
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}

	var requests []Request
	seen := make(map[string]bool)
	for i := range aircraft {
		if len(requests) >= batchLimit {
			break
		}
		ac := &aircraft[i]
		callsign := adsb.NormalizeCallsign(ac.Flight)
		if callsign == "" || seen[callsign] {
			continue
		}
		seen[callsign] = true

		if entry, ok := c.entries[callsign]; ok && now.Sub(entry.FetchedAt) <= c.ttl {
			continue
		}
		if issued, ok := c.lastRequest[callsign]; ok && now.Sub(issued) < c.refresh {
			continue
		}

		c.lastRequest[callsign] = now
		req := Request{Callsign: ac.CallsignTrimmed()}
		if ac.HasPosition() {
			req.Lat = *ac.Lat
			req.Lon = *ac.Lon
		}
		requests = append(requests, req)
	}
	return requests
}

// ApplyResults upserts cache entries and clears backoff state; a
// successful fetch resets the failure counter.
func (c *Cache) ApplyResults(results []Result, now time.Time) {
	for _, r := range results {
		callsign := adsb.NormalizeCallsign(r.Callsign)
		if callsign == "" {
			continue
		}
		c.entries[callsign] = Entry{
			Callsign:    strings.TrimSpace(r.Callsign),
			Origin:      r.Origin,
			Destination: r.Destination,
			Route:       r.Route,
			FetchedAt:   now,
		}
	}
	c.failures = 0
	c.backoffUntil = time.Time{}
	c.lastError = ""
	c.lastErrorAt = time.Time{}
}

// NoteFailure records a lookup failure. Rate-limit-shaped failures extend
// an exponential backoff deadline, honoring any retry-after hint embedded
// in the message; other failures are surfaced for display only.
func (c *Cache) NoteFailure(message string, now time.Time) {
	c.lastError = message
	c.lastErrorAt = now

	if !IsRateLimited(message) {
		return
	}

	c.failures++
	shift := c.failures - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	wait := time.Duration(math.Exp2(float64(shift))) * time.Second
	if hint := retryAfterHint(message); hint > wait {
		wait = hint
	}
	if wait > maxBackoff {
		wait = maxBackoff
	}
	c.backoffUntil = now.Add(wait)
}

// IsPending reports whether a request for the callsign was issued recently
// enough that a result may still arrive. The window derives from the
// refresh interval so it tracks the actual request cadence.
func (c *Cache) IsPending(callsign string, now time.Time) bool {
	issued, ok := c.lastRequest[adsb.NormalizeCallsign(callsign)]
	if !ok {
		return false
	}
	return now.Sub(issued) < c.PendingWindow()
}

// PendingWindow returns how long after issue a request counts as in
// flight: the refresh interval clamped to a sane range.
func (c *Cache) PendingWindow() time.Duration {
	window := c.refresh
	if window < minPendingWindow {
		window = minPendingWindow
	}
	if window > maxPendingWindow {
		window = maxPendingWindow
	}
	return window
}

// RequestTimes returns a copy of the issue time per normalized callsign.
func (c *Cache) RequestTimes() map[string]time.Time {
	out := make(map[string]time.Time, len(c.lastRequest))
	for k, v := range c.lastRequest {
		out[k] = v
	}
	return out
}

// EntryFor returns the cached route for a callsign.
func (c *Cache) EntryFor(callsign string) (Entry, bool) {
	entry, ok := c.entries[adsb.NormalizeCallsign(callsign)]
	return entry, ok
}

// TextFor returns the display route text for a callsign, empty when
// unknown.
func (c *Cache) TextFor(callsign string) string {
	entry, ok := c.EntryFor(callsign)
	if !ok {
		return ""
	}
	return entry.Text()
}

// Entries returns a copy of the cache keyed by normalized callsign.
func (c *Cache) Entries() map[string]Entry {
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// BackoffUntil returns the active backoff deadline, zero when none.
func (c *Cache) BackoffUntil() time.Time {
	return c.backoffUntil
}

// Failures returns the consecutive rate-limit failure count.
func (c *Cache) Failures() int {
	return c.failures
}

// LastError returns the most recent lookup error and when it happened.
func (c *Cache) LastError() (string, time.Time) {
	return c.lastError, c.lastErrorAt
}

// IsRateLimited reports whether a failure message looks like provider
// rate limiting.
func IsRateLimited(message string) bool {
	msg := strings.ToLower(message)
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "rate limit")
}

// retryAfterHint parses a "retry-after=<n>s" token out of a failure
// message, zero when absent or malformed.
func retryAfterHint(message string) time.Duration {
	msg := strings.ToLower(message)
	idx := strings.Index(msg, "retry-after=")
	if idx < 0 {
		return 0
	}
	rest := msg[idx+len("retry-after="):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	secs, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
