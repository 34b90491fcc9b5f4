package watchlist

import (
	"fmt"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
)

// Match pairs an aircraft identity with the rule that fired for it.
type Match struct {
	Key     string
	Entry   *Entry
	Message string
}

// Notifier emits watchlist alerts with a per-(rule, aircraft) cooldown,
// so one aircraft can alert independently under different rules without
// any single pairing firing continuously.
type Notifier struct {
	matcher  *Matcher
	cooldown time.Duration

	lastFired map[string]time.Time
}

// NewNotifier creates a notifier over the matcher's rule set.
func NewNotifier(matcher *Matcher, cooldown time.Duration) *Notifier {
	if cooldown <= 0 {
		cooldown = 2 * time.Minute
	}
	return &Notifier{
		matcher:   matcher,
		cooldown:  cooldown,
		lastFired: make(map[string]time.Time),
	}
}

// Evaluate runs the notification pass over one raw snapshot. routeText
// resolves the synthesized route for an aircraft, for route-field rules.
func (n *Notifier) Evaluate(snap *adsb.Snapshot, routeText func(*adsb.Aircraft) string, now time.Time) []Match {
	n.prune(now)

	var fired []Match
	for i := range snap.Aircraft {
		ac := &snap.Aircraft[i]
		key, ok := ac.Key()
		if !ok {
			continue
		}
		route := ""
		if routeText != nil {
			route = routeText(ac)
		}

		for j := range n.matcher.entries {
			e := &n.matcher.entries[j]
			if !e.Notify || !e.Matches(ac, route) {
				continue
			}

			recencyKey := e.RuleID() + "|" + key
			if last, seen := n.lastFired[recencyKey]; seen && now.Sub(last) < n.cooldown {
				continue
			}
			n.lastFired[recencyKey] = now

			fired = append(fired, Match{
				Key:     key,
				Entry:   e,
				Message: alertMessage(e, ac),
			})
		}
	}
	return fired
}

func alertMessage(e *Entry, ac *adsb.Aircraft) string {
	who := ac.CallsignTrimmed()
	if who == "" {
		who = adsb.NormalizeHex(ac.Hex)
	}
	if reg := ac.Registration; reg != "" && reg != who {
		who = fmt.Sprintf("%s (%s)", who, reg)
	}
	return fmt.Sprintf("WATCH %s: %s", e.DisplayName(), who)
}

func (n *Notifier) prune(now time.Time) {
	ttl := 4 * n.cooldown
	if ttl < time.Minute {
		ttl = time.Minute
	}
	for key, fired := range n.lastFired {
		if now.Sub(fired) > ttl {
			delete(n.lastFired, key)
		}
	}
}
