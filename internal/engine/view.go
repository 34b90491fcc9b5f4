package engine

import (
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/routes"
)

// View is the complete read surface published by the engine loop. It is
// built fresh on every publish and never mutated afterwards, so readers on
// other goroutines can hold one indefinitely without synchronization.
type View struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Snapshot    *adsb.Snapshot `json:"snapshot"`

	LastUpdate  time.Time `json:"last_update"`
	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitempty"`

	MsgRate         *float64           `json:"msg_rate,omitempty"`
	AvgAircraftRate *float64           `json:"avg_aircraft_rate,omitempty"`
	AircraftRates   map[string]float64 `json:"aircraft_rates,omitempty"`

	Trends map[string]Trends       `json:"trends,omitempty"`
	Trails map[string][]TrailPoint `json:"trails,omitempty"`

	WatchMatches map[string]WatchMatch `json:"watch_matches,omitempty"`
	Favorites    map[string]bool       `json:"favorites,omitempty"`

	Routes        map[string]routes.Entry `json:"routes,omitempty"`
	RouteError    string                  `json:"route_error,omitempty"`
	RouteErrorAt  time.Time               `json:"route_error_at,omitempty"`
	RouteBackoff  time.Time               `json:"route_backoff_until,omitempty"`
	RouteFailures int                     `json:"route_failures,omitempty"`

	Notifications []Alert `json:"notifications,omitempty"`

	StaleSecs float64 `json:"stale_secs"`
	LowNIC    int64   `json:"low_nic"`
	LowNACP   int64   `json:"low_nacp"`

	routeRequests map[string]time.Time
	pendingWindow time.Duration
}

// BuildView assembles an immutable view of the current engine state.
func (e *Engine) BuildView(now time.Time) *View {
	v := &View{
		GeneratedAt: now,
		Snapshot:    e.display.Clone(),
		LastUpdate:  e.lastUpdate,
		LastError:   e.lastError,
		LastErrorAt: e.lastErrorAt,

		AircraftRates: e.rates.AircraftRates(),
		Trends:        e.trends.All(),
		Trails:        e.trails.All(),

		WatchMatches: make(map[string]WatchMatch, len(e.watchMatches)),
		Favorites:    make(map[string]bool, len(e.favorites)),

		Routes:        e.routeCache.Entries(),
		RouteBackoff:  e.routeCache.BackoffUntil(),
		RouteFailures: e.routeCache.Failures(),

		Notifications: append([]Alert(nil), e.notifications...),

		StaleSecs: e.opts.StaleSecs,
		LowNIC:    e.opts.LowNIC,
		LowNACP:   e.opts.LowNACP,

		routeRequests: e.routeCache.RequestTimes(),
		pendingWindow: e.routeCache.PendingWindow(),
	}

	if rate, ok := e.rates.MsgRate(); ok {
		v.MsgRate = &rate
	}
	if avg, ok := e.rates.AvgAircraftRate(); ok {
		v.AvgAircraftRate = &avg
	}
	for k, m := range e.watchMatches {
		v.WatchMatches[k] = m
	}
	for k := range e.favorites {
		v.Favorites[k] = true
	}
	v.RouteError, v.RouteErrorAt = e.routeCache.LastError()
	return v
}

// RoutePending reports whether a route lookup for the callsign was in
// flight as of this view, for "fetching" placeholders.
func (v *View) RoutePending(callsign string, now time.Time) bool {
	issued, ok := v.routeRequests[adsb.NormalizeCallsign(callsign)]
	if !ok {
		return false
	}
	return now.Sub(issued) < v.pendingWindow
}

// IsStale reports whether an aircraft's data is older than the staleness
// threshold.
func (v *View) IsStale(ac *adsb.Aircraft) bool {
	return ac.Seen != nil && *ac.Seen > v.StaleSecs
}

// LowQuality reports whether an aircraft's position integrity falls below
// the configured NIC/NACp floor.
func (v *View) LowQuality(ac *adsb.Aircraft) bool {
	if v.LowNIC > 0 && ac.NIC != nil && *ac.NIC < v.LowNIC {
		return true
	}
	if v.LowNACP > 0 && ac.NACP != nil && *ac.NACP < v.LowNACP {
		return true
	}
	return false
}
