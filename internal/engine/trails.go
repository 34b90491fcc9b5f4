package engine

import (
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
)

// trailDedupDeg is the movement threshold below which a new position is
// considered a duplicate of the previous trail point.
const trailDedupDeg = 1e-5

// TrailPoint is one recorded position of an aircraft.
type TrailPoint struct {
	Lat float64   `json:"lat"`
	Lon float64   `json:"lon"`
	At  time.Time `json:"at"`
}

// PositionRecord is a trail point tagged with its identity key, handed to
// sinks that persist the movement history.
type PositionRecord struct {
	Key string
	TrailPoint
}

// TrailBuffer keeps a short bounded position history per aircraft identity.
// Aircraft that stop reporting a position keep their last known trail.
type TrailBuffer struct {
	maxLen int
	points map[string][]TrailPoint
}

func NewTrailBuffer(maxLen int) *TrailBuffer {
	if maxLen <= 0 {
		maxLen = 6
	}
	return &TrailBuffer{
		maxLen: maxLen,
		points: make(map[string][]TrailPoint),
	}
}

// Update appends new positions from one raw snapshot and returns the points
// that were actually appended.
func (t *TrailBuffer) Update(snap *adsb.Snapshot, now time.Time) []PositionRecord {
	var appended []PositionRecord
	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]
		if !ac.HasPosition() {
			continue
		}
		key, ok := ac.Key()
		if !ok {
			continue
		}

		trail := t.points[key]
		if n := len(trail); n > 0 {
			last := trail[n-1]
			if absDiff(last.Lat, *ac.Lat) < trailDedupDeg && absDiff(last.Lon, *ac.Lon) < trailDedupDeg {
				continue
			}
		}

		trail = append(trail, TrailPoint{Lat: *ac.Lat, Lon: *ac.Lon, At: now})
		if len(trail) > t.maxLen {
			trail = trail[len(trail)-t.maxLen:]
		}
		t.points[key] = trail
		appended = append(appended, PositionRecord{Key: key, TrailPoint: trail[len(trail)-1]})
	}
	return appended
}

// TrailFor returns a copy of the trail for an identity key, oldest first.
func (t *TrailBuffer) TrailFor(key string) []TrailPoint {
	trail, ok := t.points[key]
	if !ok {
		return nil
	}
	out := make([]TrailPoint, len(trail))
	copy(out, trail)
	return out
}

// All returns a copy of every trail.
func (t *TrailBuffer) All() map[string][]TrailPoint {
	out := make(map[string][]TrailPoint, len(t.points))
	for key, trail := range t.points {
		cp := make([]TrailPoint, len(trail))
		copy(cp, trail)
		out[key] = cp
	}
	return out
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
