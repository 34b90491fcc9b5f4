package engine

import (
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/geo"
	"github.com/j4v3l/skydeck/internal/routes"
	"github.com/j4v3l/skydeck/internal/watchlist"
	"github.com/j4v3l/skydeck/pkg/logger"
)

// notificationCap bounds the alert ring shared by proximity and watchlist
// notifications.
const notificationCap = 10

// Options configures an Engine. Zero values fall back to working defaults
// in New.
type Options struct {
	Smooth      bool
	SmoothMerge bool
	UIInterval  time.Duration

	RateWindow  time.Duration
	RateMinSecs float64

	TrailLen int

	Site           *geo.Point
	SiteElevFt     float64
	NotifyRadiusMi float64
	OverpassMi     float64
	NotifyCooldown time.Duration

	StaleSecs float64
	LowNIC    int64
	LowNACP   int64

	RouteBatchLimit int
}

// AlertSink receives triggered alerts. Implementations must not block;
// they are called from the engine loop.
type AlertSink interface {
	Alert(a Alert)
}

// PositionSink receives newly appended trail points for persistence.
// Implementations must not block.
type PositionSink interface {
	LogPositions(records []PositionRecord)
}

// FavoritesSaver persists the favorites set after a toggle.
type FavoritesSaver func(hexes []string)

// Engine owns all derived aircraft state. Every method must be called
// from the single loop goroutine; the only cross-goroutine surface is the
// immutable View published via Loop.
type Engine struct {
	opts   Options
	logger *logger.Logger

	raw         *adsb.Snapshot
	display     *adsb.Snapshot
	lastSwap    time.Time
	lastUpdate  time.Time
	lastError   string
	lastErrorAt time.Time

	rates     *RateEstimator
	trends    *TrendTracker
	trails    *TrailBuffer
	proximity *ProximityNotifier

	matcher       *watchlist.Matcher
	watchNotifier *watchlist.Notifier
	watchMatches  map[string]WatchMatch

	routeCache *routes.Cache

	favorites      map[string]bool
	favoritesSaver FavoritesSaver

	notifications []Alert

	alertSinks   []AlertSink
	positionSink PositionSink
}

// WatchMatch is the winning watchlist rule for one aircraft, as exposed
// to readers.
type WatchMatch struct {
	RuleID   string `json:"rule_id"`
	Label    string `json:"label"`
	Priority int64  `json:"priority"`
}

// New creates an engine. matcher and routeCache must be non-nil; pass an
// empty matcher and a disabled cache when the features are off.
func New(opts Options, matcher *watchlist.Matcher, routeCache *routes.Cache, favorites []string, log *logger.Logger) *Engine {
	if opts.TrailLen <= 0 {
		opts.TrailLen = 6
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = 300 * time.Millisecond
	}
	if opts.RateMinSecs <= 0 {
		opts.RateMinSecs = 0.25
	}
	if opts.NotifyCooldown <= 0 {
		opts.NotifyCooldown = 2 * time.Minute
	}
	if opts.StaleSecs <= 0 {
		opts.StaleSecs = 60
	}

	e := &Engine{
		opts:         opts,
		logger:       log.Named("engine"),
		rates:        NewRateEstimator(opts.RateWindow, opts.RateMinSecs),
		trends:       NewTrendTracker(),
		trails:       NewTrailBuffer(opts.TrailLen),
		matcher:      matcher,
		routeCache:   routeCache,
		watchMatches: make(map[string]WatchMatch),
		favorites:    make(map[string]bool),
	}
	if opts.Site != nil {
		e.proximity = NewProximityNotifier(*opts.Site, opts.SiteElevFt, opts.NotifyRadiusMi, opts.OverpassMi, opts.NotifyCooldown)
	}
	e.watchNotifier = watchlist.NewNotifier(matcher, opts.NotifyCooldown)

	for _, hex := range favorites {
		if adsb.NormalizeHex(hex) != "" {
			e.favorites[adsb.HexKey(hex)] = true
		}
	}
	return e
}

// AddAlertSink registers a sink for triggered alerts.
func (e *Engine) AddAlertSink(sink AlertSink) {
	e.alertSinks = append(e.alertSinks, sink)
}

// SetPositionSink registers the sink for appended trail points.
func (e *Engine) SetPositionSink(sink PositionSink) {
	e.positionSink = sink
}

// SetFavoritesSaver registers the persistence callback for favorites.
func (e *Engine) SetFavoritesSaver(saver FavoritesSaver) {
	e.favoritesSaver = saver
}

// ApplyUpdate ingests one raw snapshot: derived state first, against the
// previous stored values, then the snapshot itself becomes the latest raw
// state. With smoothing disabled the display snapshot follows immediately.
func (e *Engine) ApplyUpdate(snap *adsb.Snapshot, now time.Time) {
	e.rates.Update(snap, now)
	e.trends.Update(snap, now)

	appended := e.trails.Update(snap, now)
	if e.positionSink != nil && len(appended) > 0 {
		e.positionSink.LogPositions(appended)
	}

	if e.proximity != nil {
		for _, alert := range e.proximity.Evaluate(snap, now) {
			e.pushAlert(alert)
		}
	}

	for _, m := range e.watchNotifier.Evaluate(snap, e.routeTextFor, now) {
		e.pushAlert(Alert{
			Kind:    "watchlist",
			Key:     m.Key,
			Message: m.Message,
			At:      now,
		})
	}
	e.refreshWatchMatches(snap)

	e.raw = snap
	e.lastUpdate = now
	e.lastError = ""
	e.lastErrorAt = time.Time{}

	if !e.opts.Smooth {
		e.display = snap.Clone()
		e.lastSwap = now
	}
}

// ApplyError records a transient feed error. The previous display snapshot
// stays visible; only the error indicator changes.
func (e *Engine) ApplyError(msg string, now time.Time) {
	e.lastError = msg
	e.lastErrorAt = now
	e.logger.Warn("Feed error", logger.String("error", msg))
}

// MaybeSwapSnapshot republishes the display snapshot at most once per UI
// interval; a zero interval republishes on every call. Reports whether a
// swap happened.
func (e *Engine) MaybeSwapSnapshot(now time.Time) bool {
	if !e.opts.Smooth || e.raw == nil {
		return false
	}
	if e.opts.UIInterval > 0 && !e.lastSwap.IsZero() && now.Sub(e.lastSwap) < e.opts.UIInterval {
		return false
	}
	e.swapSnapshot(now)
	return true
}

func (e *Engine) swapSnapshot(now time.Time) {
	if e.raw == nil {
		return
	}
	if e.opts.SmoothMerge {
		e.display = mergeSnapshots(e.raw, e.display)
	} else {
		e.display = e.raw.Clone()
	}
	e.lastSwap = now
}

// Advance runs time-based state transitions with no new data: rate decay.
func (e *Engine) Advance(now time.Time) {
	e.rates.Decay(now)
}

// CollectRouteRequests asks the route cache which lookups to issue for
// the currently displayed aircraft.
func (e *Engine) CollectRouteRequests(now time.Time) []routes.Request {
	snap := e.display
	if snap == nil {
		snap = e.raw
	}
	if snap == nil {
		return nil
	}
	return e.routeCache.CollectRequests(snap.Aircraft, now, e.opts.RouteBatchLimit)
}

// ApplyRouteMessage folds one route worker delivery into the cache.
func (e *Engine) ApplyRouteMessage(msg routes.Message, now time.Time) {
	if msg.Err != "" {
		e.routeCache.NoteFailure(msg.Err, now)
		return
	}
	e.routeCache.ApplyResults(msg.Results, now)
}

// ToggleFavorite flips the favorite flag for a hex address and persists
// the new set.
func (e *Engine) ToggleFavorite(hex string) bool {
	key := adsb.HexKey(hex)
	nowFav := !e.favorites[key]
	if nowFav {
		e.favorites[key] = true
	} else {
		delete(e.favorites, key)
	}

	if e.favoritesSaver != nil {
		hexes := make([]string, 0, len(e.favorites))
		for k := range e.favorites {
			hexes = append(hexes, k[len("hex:"):])
		}
		e.favoritesSaver(hexes)
	}
	return nowFav
}

// routeTextFor resolves the synthesized route string for an aircraft.
func (e *Engine) routeTextFor(ac *adsb.Aircraft) string {
	callsign := ac.CallsignTrimmed()
	if callsign == "" {
		return ""
	}
	return e.routeCache.TextFor(callsign)
}

// refreshWatchMatches recomputes the winning rule per aircraft for the
// snapshot being ingested.
func (e *Engine) refreshWatchMatches(snap *adsb.Snapshot) {
	for k := range e.watchMatches {
		delete(e.watchMatches, k)
	}
	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]
		key, ok := ac.Key()
		if !ok {
			continue
		}
		if entry := e.matcher.MatchFor(ac, e.routeTextFor(ac)); entry != nil {
			e.watchMatches[key] = WatchMatch{
				RuleID:   entry.RuleID(),
				Label:    entry.DisplayName(),
				Priority: entry.Priority,
			}
		}
	}
}

// pushAlert appends to the notification ring and fans out to sinks.
func (e *Engine) pushAlert(a Alert) {
	e.notifications = append(e.notifications, a)
	if len(e.notifications) > notificationCap {
		e.notifications = e.notifications[len(e.notifications)-notificationCap:]
	}
	e.logger.Info("Alert",
		logger.String("kind", a.Kind),
		logger.String("key", a.Key),
		logger.String("message", a.Message),
	)
	for _, sink := range e.alertSinks {
		sink.Alert(a)
	}
}
