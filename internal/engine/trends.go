package engine

import (
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
)

// Trend is the direction of change of a single metric between the two most
// recent observations of an aircraft.
type Trend int

const (
	TrendUnknown Trend = iota
	TrendUp
	TrendDown
	TrendFlat
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	case TrendFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// MarshalText makes trends render as their names in API responses.
func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Trends holds the per-metric trend directions for one aircraft.
type Trends struct {
	Altitude    Trend `json:"altitude"`
	GroundSpeed Trend `json:"ground_speed"`
}

type trendPrev struct {
	altBaro *int64
	gs      *float64
	at      time.Time
}

// TrendTracker compares each aircraft's altitude and ground speed against
// its previous observation. The previous values are always overwritten, so
// a field that goes missing yields Unknown on the next comparison rather
// than comparing against stale data.
type TrendTracker struct {
	prev   map[string]trendPrev
	trends map[string]Trends
}

func NewTrendTracker() *TrendTracker {
	return &TrendTracker{
		prev:   make(map[string]trendPrev),
		trends: make(map[string]Trends),
	}
}

// Update recomputes trends from one raw snapshot.
func (t *TrendTracker) Update(snap *adsb.Snapshot, now time.Time) {
	present := make(map[string]bool, len(snap.Aircraft))
	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]
		key, ok := ac.Key()
		if !ok {
			continue
		}
		present[key] = true

		p := t.prev[key]
		t.trends[key] = Trends{
			Altitude:    compareInt(ac.AltBaro, p.altBaro),
			GroundSpeed: compareFloat(ac.GS, p.gs),
		}
		t.prev[key] = trendPrev{altBaro: ac.AltBaro, gs: ac.GS, at: now}
	}

	for key := range t.prev {
		if !present[key] {
			delete(t.prev, key)
			delete(t.trends, key)
		}
	}
}

// TrendsFor returns the trends for an identity key.
func (t *TrendTracker) TrendsFor(key string) (Trends, bool) {
	tr, ok := t.trends[key]
	return tr, ok
}

// All returns a copy of every tracked trend.
func (t *TrendTracker) All() map[string]Trends {
	out := make(map[string]Trends, len(t.trends))
	for k, v := range t.trends {
		out[k] = v
	}
	return out
}

func compareInt(cur, prev *int64) Trend {
	if cur == nil || prev == nil {
		return TrendUnknown
	}
	switch {
	case *cur > *prev:
		return TrendUp
	case *cur < *prev:
		return TrendDown
	default:
		return TrendFlat
	}
}

func compareFloat(cur, prev *float64) Trend {
	if cur == nil || prev == nil {
		return TrendUnknown
	}
	switch {
	case *cur > *prev:
		return TrendUp
	case *cur < *prev:
		return TrendDown
	default:
		return TrendFlat
	}
}
