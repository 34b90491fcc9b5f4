package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/routes"
	"github.com/j4v3l/skydeck/pkg/logger"
)

// Loop drives a single Engine: it drains worker channels, applies each
// message in arrival order, ticks time-based state, and publishes the
// resulting View behind an atomic pointer. All engine mutation happens on
// the Loop goroutine.
type Loop struct {
	engine *Engine
	logger *logger.Logger

	feedCh   <-chan adsb.Result
	routeCh  <-chan routes.Message
	routeOut chan<- []routes.Request

	tick time.Duration
	cmds chan func(*Engine)
	view atomic.Pointer[View]
}

// NewLoop wires a loop around an engine. tick is the UI tick driving
// decay, route collection, and snapshot swaps.
func NewLoop(e *Engine, feedCh <-chan adsb.Result, routeCh <-chan routes.Message, routeOut chan<- []routes.Request, tick time.Duration, log *logger.Logger) *Loop {
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	l := &Loop{
		engine:   e,
		logger:   log.Named("loop"),
		feedCh:   feedCh,
		routeCh:  routeCh,
		routeOut: routeOut,
		tick:     tick,
		cmds:     make(chan func(*Engine), 16),
	}
	l.view.Store(e.BuildView(time.Now()))
	return l
}

// View returns the most recently published view. Safe from any goroutine.
func (l *Loop) View() *View {
	return l.view.Load()
}

// Do schedules fn to run on the loop goroutine with exclusive access to
// the engine. Used for the few mutations that originate outside the feed,
// like favorite toggles.
func (l *Loop) Do(fn func(*Engine)) {
	select {
	case l.cmds <- fn:
	default:
		l.logger.Warn("Command queue full, dropping command")
	}
}

// Run processes messages until the context is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	l.logger.Info("Engine loop started", logger.Duration("tick", l.tick))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Engine loop stopped")
			return

		case res := <-l.feedCh:
			now := time.Now()
			if res.Err != "" {
				l.engine.ApplyError(res.Err, now)
			} else if res.Snapshot != nil {
				l.engine.ApplyUpdate(res.Snapshot, now)
			}
			l.publish(now)

		case msg := <-l.routeCh:
			now := time.Now()
			l.engine.ApplyRouteMessage(msg, now)
			l.publish(now)

		case fn := <-l.cmds:
			fn(l.engine)
			l.publish(time.Now())

		case <-ticker.C:
			now := time.Now()
			l.engine.Advance(now)
			l.dispatchRouteRequests(now)
			l.engine.MaybeSwapSnapshot(now)
			l.publish(now)
		}
	}
}

// dispatchRouteRequests hands pending lookups to the route worker without
// blocking; a full worker queue just means the batch is retried after the
// refresh window.
func (l *Loop) dispatchRouteRequests(now time.Time) {
	if l.routeOut == nil {
		return
	}
	reqs := l.engine.CollectRouteRequests(now)
	if len(reqs) == 0 {
		return
	}
	select {
	case l.routeOut <- reqs:
		l.logger.Debug("Dispatched route requests", logger.Int("count", len(reqs)))
	default:
		l.logger.Debug("Route worker busy, dropping batch", logger.Int("count", len(reqs)))
	}
}

func (l *Loop) publish(now time.Time) {
	l.view.Store(l.engine.BuildView(now))
}
