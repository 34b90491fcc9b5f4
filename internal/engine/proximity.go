package engine

import (
	"fmt"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/geo"
)

// Alert is a triggered notification, from either the proximity or the
// watchlist pass.
type Alert struct {
	Kind       string    `json:"kind"`
	Key        string    `json:"key"`
	Message    string    `json:"message"`
	Distance   float64   `json:"distance_mi,omitempty"`
	Bearing    float64   `json:"bearing_deg,omitempty"`
	BearingMag float64   `json:"bearing_mag_deg,omitempty"`
	At         time.Time `json:"at"`
}

// ProximityNotifier raises an alert when an aircraft enters the notify
// radius around the site, with a per-identity cooldown so a loitering
// aircraft does not fire continuously.
type ProximityNotifier struct {
	site     geo.Point
	elevFt   float64
	radiusMi float64
	overMi   float64
	cooldown time.Duration

	lastFired map[string]time.Time
}

// NewProximityNotifier creates a notifier for the given site. radiusMi is
// the alert radius, overMi the threshold below which an aircraft counts as
// directly overhead. elevFt is the site elevation, used for the magnetic
// declination lookup.
func NewProximityNotifier(site geo.Point, elevFt, radiusMi, overMi float64, cooldown time.Duration) *ProximityNotifier {
	if radiusMi <= 0 {
		radiusMi = 10.0
	}
	if overMi <= 0 {
		overMi = 0.5
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Minute
	}
	return &ProximityNotifier{
		site:      site,
		elevFt:    elevFt,
		radiusMi:  radiusMi,
		overMi:    overMi,
		cooldown:  cooldown,
		lastFired: make(map[string]time.Time),
	}
}

// Evaluate checks one raw snapshot and returns the alerts it triggers.
func (p *ProximityNotifier) Evaluate(snap *adsb.Snapshot, now time.Time) []Alert {
	p.pruneRecency(now)

	var alerts []Alert
	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]
		if !ac.HasPosition() {
			continue
		}
		key, ok := ac.Key()
		if !ok {
			continue
		}

		dist := geo.DistanceMi(p.site, geo.Point{Lat: *ac.Lat, Lon: *ac.Lon})
		if dist > p.radiusMi {
			continue
		}
		if fired, ok := p.lastFired[key]; ok && now.Sub(fired) < p.cooldown {
			continue
		}
		p.lastFired[key] = now

		bearing := geo.BearingDeg(p.site, geo.Point{Lat: *ac.Lat, Lon: *ac.Lon})
		alerts = append(alerts, Alert{
			Kind:       "proximity",
			Key:        key,
			Message:    p.message(ac, dist),
			Distance:   dist,
			Bearing:    bearing,
			BearingMag: geo.MagneticBearingDeg(bearing, p.site, p.elevFt, now),
			At:         now,
		})
	}
	return alerts
}

func (p *ProximityNotifier) message(ac *adsb.Aircraft, dist float64) string {
	verb := "NEAR"
	if dist <= p.overMi {
		verb = "OVER"
	}

	who := ac.CallsignTrimmed()
	if who == "" {
		who = adsb.NormalizeHex(ac.Hex)
	}
	if reg := ac.Registration; reg != "" && reg != who {
		who = fmt.Sprintf("%s (%s)", who, reg)
	}
	return fmt.Sprintf("%s %s %.1f mi", verb, who, dist)
}

// pruneRecency drops cooldown bookkeeping for aircraft not alerted on
// recently, so the map does not grow with every identity ever seen.
func (p *ProximityNotifier) pruneRecency(now time.Time) {
	ttl := 4 * p.cooldown
	if ttl < time.Minute {
		ttl = time.Minute
	}
	for key, fired := range p.lastFired {
		if now.Sub(fired) > ttl {
			delete(p.lastFired, key)
		}
	}
}
