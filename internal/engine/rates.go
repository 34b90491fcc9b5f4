package engine

import (
	"math"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
)

// Rate estimator tuning. Short-vs-window blend and EMA weight follow the
// values that proved stable against bursty 1090MHz feeds.
const (
	shortBlendWeight  = 0.7
	windowBlendWeight = 0.3
	emaWeight         = 0.45

	minDecayHold = 2 * time.Second
	minDecayTau  = 3 * time.Second
)

type rateSample struct {
	at    time.Time
	total uint64
}

// counterRate turns a monotonically increasing counter into a smoothed
// per-second rate. It blends a short rate (last two samples) with a
// window rate, feeds the blend into an EMA, and decays the EMA toward
// zero once the counter stops advancing. A counter decrease is treated
// as a source restart: history and EMA are discarded and the estimator
// reseeds from the next advance.
type counterRate struct {
	window  time.Duration
	minSecs float64

	samples     []rateSample
	ema         float64
	emaSet      bool
	lastAdvance time.Time
	lastDecay   time.Time
}

func newCounterRate(window time.Duration, minSecs float64) *counterRate {
	if window <= 0 {
		window = 300 * time.Millisecond
	}
	if minSecs <= 0 {
		minSecs = 0.25
	}
	return &counterRate{window: window, minSecs: minSecs}
}

// Observe records a counter reading at the given time.
func (r *counterRate) Observe(total uint64, now time.Time) {
	if n := len(r.samples); n > 0 && total < r.samples[n-1].total {
		// Counter went backwards. Everything accumulated is garbage now.
		r.samples = r.samples[:0]
		r.emaSet = false
		r.ema = 0
	}

	r.samples = append(r.samples, rateSample{at: now, total: total})
	r.prune(now)

	if len(r.samples) < 2 {
		return
	}

	last := r.samples[len(r.samples)-1]
	prev := r.samples[len(r.samples)-2]
	delta := last.total - prev.total
	if delta == 0 {
		// No advance. The EMA is held and left to Decay.
		return
	}

	shortDt := math.Max(last.at.Sub(prev.at).Seconds(), r.minSecs*0.5)
	shortRate := float64(delta) / shortDt

	oldest := r.samples[0]
	windowRate := shortRate
	if windowDelta := last.total - oldest.total; oldest.at.Before(prev.at) && windowDelta > 0 {
		windowDt := math.Max(last.at.Sub(oldest.at).Seconds(), r.minSecs)
		windowRate = float64(windowDelta) / windowDt
	}

	inst := shortBlendWeight*shortRate + windowBlendWeight*windowRate
	if r.emaSet {
		r.ema = emaWeight*inst + (1-emaWeight)*r.ema
	} else {
		r.ema = inst
		r.emaSet = true
	}
	r.lastAdvance = now
	r.lastDecay = now
}

// prune drops samples that fell out of the window, always retaining the
// last two so a short rate stays computable on sparse feeds.
func (r *counterRate) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	keepFrom := 0
	for keepFrom < len(r.samples)-2 && r.samples[keepFrom].at.Before(cutoff) {
		keepFrom++
	}
	if keepFrom > 0 {
		r.samples = append(r.samples[:0], r.samples[keepFrom:]...)
	}
}

// Decay ages the EMA toward zero once the counter has been silent for
// longer than the hold period. The hold keeps normal poll gaps from
// eroding the estimate; the time constant keeps the falloff gradual.
func (r *counterRate) Decay(now time.Time) {
	if !r.emaSet {
		return
	}
	hold := r.window
	if hold < minDecayHold {
		hold = minDecayHold
	}
	start := r.lastAdvance.Add(hold)
	if !now.After(start) {
		return
	}

	from := r.lastDecay
	if from.Before(start) {
		from = start
	}
	if !now.After(from) {
		return
	}

	tau := 4 * r.window
	if tau < minDecayTau {
		tau = minDecayTau
	}
	r.ema *= math.Exp(-now.Sub(from).Seconds() / tau.Seconds())
	r.lastDecay = now
}

// Rate returns the current estimate, if one has been established.
func (r *counterRate) Rate() (float64, bool) {
	return r.ema, r.emaSet
}

// RateEstimator tracks the sitewide message rate plus an independent rate
// per aircraft identity. When the feed omits the sitewide counter, a
// coarser estimator fed from summed per-aircraft deltas fills in.
type RateEstimator struct {
	global     *counterRate
	fallback   *counterRate
	fallbackOK bool

	fallbackTotal uint64
	perAircraft   map[string]*counterRate
	lastCounts    map[string]uint64

	avg    float64
	avgSet bool
}

// NewRateEstimator creates an estimator with the given sample window and
// minimum rate divisor in seconds.
func NewRateEstimator(window time.Duration, minSecs float64) *RateEstimator {
	return &RateEstimator{
		global:      newCounterRate(window, minSecs),
		fallback:    newCounterRate(4*window, minSecs),
		perAircraft: make(map[string]*counterRate),
		lastCounts:  make(map[string]uint64),
	}
}

// Update feeds one raw snapshot into all estimators.
func (e *RateEstimator) Update(snap *adsb.Snapshot, now time.Time) {
	if snap.Messages != nil {
		e.global.Observe(*snap.Messages, now)
	}

	present := make(map[string]bool, len(snap.Aircraft))
	var fallbackDelta uint64
	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]
		key, ok := ac.Key()
		if !ok {
			continue
		}
		present[key] = true
		if ac.Messages == nil {
			continue
		}
		count := *ac.Messages

		if prev, seen := e.lastCounts[key]; seen && count >= prev {
			fallbackDelta += count - prev
		}
		e.lastCounts[key] = count

		r, exists := e.perAircraft[key]
		if !exists {
			r = newCounterRate(e.global.window, e.global.minSecs)
			e.perAircraft[key] = r
		}
		r.Observe(count, now)
	}

	for key := range e.perAircraft {
		if !present[key] {
			delete(e.perAircraft, key)
			delete(e.lastCounts, key)
		}
	}

	if len(snap.Aircraft) > 0 {
		e.fallbackTotal += fallbackDelta
		e.fallback.Observe(e.fallbackTotal, now)
		e.fallbackOK = true
	}

	e.refreshAvg()
}

// Decay ages every estimator; called once per UI tick.
func (e *RateEstimator) Decay(now time.Time) {
	e.global.Decay(now)
	e.fallback.Decay(now)
	for _, r := range e.perAircraft {
		r.Decay(now)
	}
	e.refreshAvg()
}

func (e *RateEstimator) refreshAvg() {
	var sum float64
	var n int
	for _, r := range e.perAircraft {
		if rate, ok := r.Rate(); ok {
			sum += rate
			n++
		}
	}
	e.avgSet = n > 0
	if n > 0 {
		e.avg = sum / float64(n)
	} else {
		e.avg = 0
	}
}

// MsgRate returns the sitewide messages-per-second estimate, preferring
// the feed's own counter over the aggregated fallback.
func (e *RateEstimator) MsgRate() (float64, bool) {
	if rate, ok := e.global.Rate(); ok {
		return rate, true
	}
	if e.fallbackOK {
		return e.fallback.Rate()
	}
	return 0, false
}

// AircraftRate returns the per-aircraft rate for an identity key.
func (e *RateEstimator) AircraftRate(key string) (float64, bool) {
	r, ok := e.perAircraft[key]
	if !ok {
		return 0, false
	}
	return r.Rate()
}

// AvgAircraftRate returns the mean of all established per-aircraft rates.
func (e *RateEstimator) AvgAircraftRate() (float64, bool) {
	return e.avg, e.avgSet
}

// AircraftRates returns a copy of all established per-aircraft rates.
func (e *RateEstimator) AircraftRates() map[string]float64 {
	out := make(map[string]float64, len(e.perAircraft))
	for key, r := range e.perAircraft {
		if rate, ok := r.Rate(); ok {
			out[key] = rate
		}
	}
	return out
}
