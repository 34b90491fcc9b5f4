package watchlist

import (
	"fmt"
	"strings"

	"github.com/j4v3l/skydeck/internal/adsb"
)

// Field selects which aircraft attribute a rule matches against.
type Field int

const (
	FieldHex Field = iota
	FieldCallsign
	FieldRegistration
	FieldType
	FieldOperator
	FieldCategory
	FieldRoute
)

func (f Field) String() string {
	switch f {
	case FieldHex:
		return "hex"
	case FieldCallsign:
		return "callsign"
	case FieldRegistration:
		return "registration"
	case FieldType:
		return "type"
	case FieldOperator:
		return "owner"
	case FieldCategory:
		return "category"
	case FieldRoute:
		return "route"
	default:
		return "unknown"
	}
}

// ParseField maps a rule file's match field name to a Field. It accepts
// the aliases people actually write in rule files.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hex", "icao":
		return FieldHex, nil
	case "callsign", "flight":
		return FieldCallsign, nil
	case "registration", "reg", "tail":
		return FieldRegistration, nil
	case "type", "typecode":
		return FieldType, nil
	case "owner", "operator":
		return FieldOperator, nil
	case "category":
		return FieldCategory, nil
	case "route":
		return FieldRoute, nil
	default:
		return 0, fmt.Errorf("unknown watchlist field: %q", s)
	}
}

// Mode selects how a rule's value is compared against the attribute.
type Mode int

const (
	ModeExact Mode = iota
	ModePrefix
	ModeContains
)

func (m Mode) String() string {
	switch m {
	case ModePrefix:
		return "prefix"
	case ModeContains:
		return "contains"
	default:
		return "exact"
	}
}

// ParseMode maps a rule file's mode string to a Mode. Blank means exact.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return ModeExact, nil
	case "prefix", "starts_with":
		return ModePrefix, nil
	case "contains", "substring":
		return ModeContains, nil
	default:
		return 0, fmt.Errorf("unknown watchlist mode: %q", s)
	}
}

// Entry is one watchlist rule.
type Entry struct {
	ID       string
	Label    string
	Field    Field
	Value    string
	Mode     Mode
	Enabled  bool
	Notify   bool
	Priority int64
}

// RuleID returns a stable identifier for cooldown bookkeeping: the
// explicit id if set, else the label, else field and value.
func (e *Entry) RuleID() string {
	if e.ID != "" {
		return e.ID
	}
	if e.Label != "" {
		return e.Label
	}
	return e.Field.String() + ":" + e.Value
}

// DisplayName returns the human-facing name for alert text.
func (e *Entry) DisplayName() string {
	if e.Label != "" {
		return e.Label
	}
	return e.RuleID()
}

// normalizedValue is what the rule's value compares as: identity fields
// reuse the feed normalization, the rest get trim plus lowercase.
func (e *Entry) normalizedValue() string {
	switch e.Field {
	case FieldHex:
		return adsb.NormalizeHex(e.Value)
	case FieldCallsign:
		return adsb.NormalizeCallsign(e.Value)
	default:
		return strings.ToLower(strings.TrimSpace(e.Value))
	}
}

// attribute resolves the rule's target field from an aircraft, already
// normalized. routeText is the synthesized route for the aircraft, empty
// when unknown.
func (e *Entry) attribute(ac *adsb.Aircraft, routeText string) string {
	switch e.Field {
	case FieldHex:
		return adsb.NormalizeHex(ac.Hex)
	case FieldCallsign:
		return adsb.NormalizeCallsign(ac.Flight)
	case FieldRegistration:
		return strings.ToLower(strings.TrimSpace(ac.Registration))
	case FieldType:
		return strings.ToLower(strings.TrimSpace(ac.TypeCode))
	case FieldOperator:
		return strings.ToLower(strings.TrimSpace(ac.Operator))
	case FieldCategory:
		return strings.ToLower(strings.TrimSpace(ac.Category))
	case FieldRoute:
		return strings.ToLower(strings.TrimSpace(routeText))
	default:
		return ""
	}
}

// Matches reports whether the rule matches the aircraft.
func (e *Entry) Matches(ac *adsb.Aircraft, routeText string) bool {
	if !e.Enabled {
		return false
	}
	want := e.normalizedValue()
	if want == "" {
		return false
	}
	got := e.attribute(ac, routeText)
	if got == "" {
		return false
	}
	switch e.Mode {
	case ModePrefix:
		return strings.HasPrefix(got, want)
	case ModeContains:
		return strings.Contains(got, want)
	default:
		return got == want
	}
}

// Matcher evaluates a fixed rule set against aircraft. Rule order is
// insertion order and is significant for priority ties.
type Matcher struct {
	entries []Entry
}

// NewMatcher creates a matcher over the given rules.
func NewMatcher(entries []Entry) *Matcher {
	return &Matcher{entries: entries}
}

// Entries returns the rule set in insertion order.
func (m *Matcher) Entries() []Entry {
	return m.entries
}

// MatchFor returns the winning rule for an aircraft: the matching enabled
// rule with the highest priority, first-encountered on ties. Nil when
// nothing matches.
func (m *Matcher) MatchFor(ac *adsb.Aircraft, routeText string) *Entry {
	var best *Entry
	for i := range m.entries {
		e := &m.entries[i]
		if !e.Matches(ac, routeText) {
			continue
		}
		if best == nil || e.Priority > best.Priority {
			best = e
		}
	}
	return best
}

// IsWatched reports whether any enabled rule matches the aircraft.
func (m *Matcher) IsWatched(ac *adsb.Aircraft, routeText string) bool {
	return m.MatchFor(ac, routeText) != nil
}
