package api

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/config"
	"github.com/j4v3l/skydeck/internal/engine"
	"github.com/j4v3l/skydeck/internal/geo"
	"github.com/j4v3l/skydeck/internal/websocket"
	"github.com/j4v3l/skydeck/pkg/logger"
)

// favoriteTimeout bounds how long a toggle waits for the engine loop.
const favoriteTimeout = 2 * time.Second

// Handler contains the API handlers.
type Handler struct {
	loop     *engine.Loop
	config   *config.Config
	logger   *logger.Logger
	wsServer *websocket.Server
}

// NewHandler creates a new API handler.
func NewHandler(loop *engine.Loop, config *config.Config, logger *logger.Logger, wsServer *websocket.Server) *Handler {
	return &Handler{
		loop:     loop,
		config:   config,
		logger:   logger.Named("api-handler"),
		wsServer: wsServer,
	}
}

// AircraftSummary is one aircraft row with its derived state attached.
type AircraftSummary struct {
	Key          string   `json:"key"`
	Hex          string   `json:"hex,omitempty"`
	Flight       string   `json:"flight,omitempty"`
	Registration string   `json:"registration,omitempty"`
	TypeCode     string   `json:"type_code,omitempty"`
	Description  string   `json:"description,omitempty"`
	Operator     string   `json:"operator,omitempty"`
	Category     string   `json:"category,omitempty"`
	Squawk       string   `json:"squawk,omitempty"`
	AltBaro      *int64   `json:"alt_baro,omitempty"`
	BaroRate     *int64   `json:"baro_rate,omitempty"`
	GS           *float64 `json:"gs,omitempty"`
	Track        *float64 `json:"track,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	Seen         *float64 `json:"seen,omitempty"`
	RSSI         *float64 `json:"rssi,omitempty"`

	DistanceMi    *float64 `json:"distance_mi,omitempty"`
	BearingDeg    *float64 `json:"bearing_deg,omitempty"`
	BearingMagDeg *float64 `json:"bearing_mag_deg,omitempty"`

	MsgRate *float64       `json:"msg_rate,omitempty"`
	Trends  *engine.Trends `json:"trends,omitempty"`

	Route        string `json:"route,omitempty"`
	RoutePending bool   `json:"route_pending,omitempty"`

	Watch      *engine.WatchMatch `json:"watch,omitempty"`
	Favorite   bool               `json:"favorite,omitempty"`
	Stale      bool               `json:"stale,omitempty"`
	LowQuality bool               `json:"low_quality,omitempty"`
}

// GetSnapshot returns the full published view.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.loop.View())
}

// GetAllAircraft returns summaries for every tracked aircraft, optionally
// filtered to favorites or watchlist matches.
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	view := h.loop.View()
	now := time.Now()

	onlyFavorites := r.URL.Query().Get("favorites") == "true"
	onlyWatched := r.URL.Query().Get("watched") == "true"

	summaries := make([]AircraftSummary, 0)
	if view.Snapshot != nil {
		for i := range view.Snapshot.Aircraft {
			s := h.summarize(view, &view.Snapshot.Aircraft[i], now)
			if s == nil {
				continue
			}
			if onlyFavorites && !s.Favorite {
				continue
			}
			if onlyWatched && s.Watch == nil {
				continue
			}
			summaries = append(summaries, *s)
		}
	}

	// Watch matches first by priority, then the rest nearest first.
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if (a.Watch != nil) != (b.Watch != nil) {
			return a.Watch != nil
		}
		if a.Watch != nil && b.Watch != nil && a.Watch.Priority != b.Watch.Priority {
			return a.Watch.Priority > b.Watch.Priority
		}
		if a.DistanceMi != nil && b.DistanceMi != nil {
			return *a.DistanceMi < *b.DistanceMi
		}
		if (a.DistanceMi != nil) != (b.DistanceMi != nil) {
			return a.DistanceMi != nil
		}
		return a.Key < b.Key
	})

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"aircraft":  summaries,
		"count":     len(summaries),
		"timestamp": view.GeneratedAt,
	})
}

// GetAircraftByKey returns one aircraft summary by its identity key. Bare
// hex addresses are accepted alongside full keys.
func (h *Handler) GetAircraftByKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		WriteError(w, http.StatusBadRequest, "missing aircraft key")
		return
	}

	view := h.loop.View()
	ac := findAircraft(view, key)
	if ac == nil {
		WriteError(w, http.StatusNotFound, "aircraft not found")
		return
	}

	s := h.summarize(view, ac, time.Now())
	WriteJSON(w, http.StatusOK, s)
}

// GetAircraftTrail returns the stored trail for one aircraft.
func (h *Handler) GetAircraftTrail(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		WriteError(w, http.StatusBadRequest, "missing aircraft key")
		return
	}

	view := h.loop.View()
	ac := findAircraft(view, key)
	if ac == nil {
		WriteError(w, http.StatusNotFound, "aircraft not found")
		return
	}
	identity, _ := ac.Key()

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"key":   identity,
		"trail": view.Trails[identity],
	})
}

// GetRates returns the message rate estimates.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	view := h.loop.View()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"msg_rate":          view.MsgRate,
		"avg_aircraft_rate": view.AvgAircraftRate,
		"aircraft_rates":    view.AircraftRates,
		"timestamp":         view.GeneratedAt,
	})
}

// GetRoutes returns the route cache contents and lookup health.
func (h *Handler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	view := h.loop.View()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"routes":        view.Routes,
		"error":         view.RouteError,
		"error_at":      view.RouteErrorAt,
		"backoff_until": view.RouteBackoff,
		"failures":      view.RouteFailures,
	})
}

// GetNotifications returns the recent alert ring, newest last.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	view := h.loop.View()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": view.Notifications,
		"count":         len(view.Notifications),
	})
}

// GetStatus returns feed and route health for the status line.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	view := h.loop.View()

	count := 0
	if view.Snapshot != nil {
		count = len(view.Snapshot.Aircraft)
	}

	status := "ok"
	if view.LastUpdate.IsZero() {
		status = "waiting"
	} else if view.LastError != "" {
		status = "degraded"
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":         status,
		"last_update":    view.LastUpdate,
		"last_error":     view.LastError,
		"last_error_at":  view.LastErrorAt,
		"aircraft_count": count,
		"msg_rate":       view.MsgRate,
		"route_failures": view.RouteFailures,
	})
}

// GetConfig returns the public configuration values.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	publicConfig := map[string]interface{}{
		"feed": map[string]interface{}{
			"refresh_interval_secs": h.config.Feed.RefreshIntervalSecs,
			"stale_secs":            h.config.Feed.StaleSecs,
		},
		"display": map[string]interface{}{
			"smooth":       h.config.Display.IsSmooth(),
			"smooth_merge": h.config.Display.IsSmoothMerge(),
			"ui_fps":       h.config.Display.UIFPS,
			"trail_len":    h.config.Display.TrailLen,
		},
		"alerts": map[string]interface{}{
			"radius_mi":     h.config.Alerts.RadiusMi,
			"overpass_mi":   h.config.Alerts.OverpassMi,
			"cooldown_secs": h.config.Alerts.CooldownSecs,
		},
		"routes": map[string]interface{}{
			"enabled":  h.config.Routes.Enabled,
			"ttl_secs": h.config.Routes.TTLSecs,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// ToggleFavorite flips the favorite flag for a hex address. The mutation
// runs on the engine loop; the response carries the new state.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	hex := chi.URLParam(r, "hex")
	if adsb.NormalizeHex(hex) == "" {
		WriteError(w, http.StatusBadRequest, "missing hex address")
		return
	}

	result := make(chan bool, 1)
	h.loop.Do(func(e *engine.Engine) {
		result <- e.ToggleFavorite(hex)
	})

	select {
	case favorite := <-result:
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"hex":      adsb.NormalizeHex(hex),
			"favorite": favorite,
		})
	case <-time.After(favoriteTimeout):
		h.logger.Warn("Favorite toggle timed out", logger.String("hex", hex))
		WriteError(w, http.StatusServiceUnavailable, "engine busy")
	}
}

// summarize builds the API row for one aircraft from the view.
func (h *Handler) summarize(view *engine.View, ac *adsb.Aircraft, now time.Time) *AircraftSummary {
	key, ok := ac.Key()
	if !ok {
		return nil
	}

	s := &AircraftSummary{
		Key:          key,
		Hex:          ac.Hex,
		Flight:       ac.CallsignTrimmed(),
		Registration: ac.Registration,
		TypeCode:     ac.TypeCode,
		Description:  ac.Description,
		Operator:     ac.Operator,
		Category:     ac.Category,
		Squawk:       ac.Squawk,
		AltBaro:      ac.AltBaro,
		BaroRate:     ac.BaroRate,
		GS:           ac.GS,
		Track:        ac.Track,
		Lat:          ac.Lat,
		Lon:          ac.Lon,
		Seen:         ac.Seen,
		RSSI:         ac.RSSI,
		Favorite:     view.Favorites[adsb.HexKey(ac.Hex)],
		Stale:        view.IsStale(ac),
		LowQuality:   view.LowQuality(ac),
	}

	if site := h.site(); site != nil && ac.HasPosition() {
		pos := geo.Point{Lat: *ac.Lat, Lon: *ac.Lon}
		dist := math.Round(geo.DistanceMi(*site, pos)*10) / 10
		trueBearing := geo.BearingDeg(*site, pos)
		magBearing := math.Round(geo.MagneticBearingDeg(trueBearing, *site, h.config.Site.ElevationFeet, now))
		bearing := math.Round(trueBearing)
		s.DistanceMi = &dist
		s.BearingDeg = &bearing
		s.BearingMagDeg = &magBearing
	}

	if rate, ok := view.AircraftRates[key]; ok {
		s.MsgRate = &rate
	}
	if trends, ok := view.Trends[key]; ok {
		s.Trends = &trends
	}
	if match, ok := view.WatchMatches[key]; ok {
		s.Watch = &match
	}

	if callsign := ac.CallsignTrimmed(); callsign != "" {
		if entry, ok := view.Routes[adsb.NormalizeCallsign(callsign)]; ok {
			s.Route = entry.Text()
		} else if view.RoutePending(callsign, now) {
			s.RoutePending = true
		}
	}
	return s
}

func (h *Handler) site() *geo.Point {
	if h.config.Site.Latitude == nil || h.config.Site.Longitude == nil {
		return nil
	}
	return &geo.Point{Lat: *h.config.Site.Latitude, Lon: *h.config.Site.Longitude}
}

// findAircraft resolves a path key against the view snapshot. Accepts full
// identity keys and bare hex addresses.
func findAircraft(view *engine.View, key string) *adsb.Aircraft {
	if view.Snapshot == nil {
		return nil
	}
	want := strings.TrimSpace(strings.ToLower(key))
	if !strings.ContainsRune(want, ':') {
		if adsb.NormalizeHex(want) != "" {
			want = adsb.HexKey(want)
		}
	}
	for i := range view.Snapshot.Aircraft {
		ac := &view.Snapshot.Aircraft[i]
		if identity, ok := ac.Key(); ok && identity == want {
			return ac
		}
	}
	return nil
}
