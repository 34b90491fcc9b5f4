package watchlist

import (
	"testing"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
)

func TestMatchFor(t *testing.T) {
	ac := adsb.Aircraft{
		Hex:          "AC6668",
		Flight:       "SWA3576 ",
		Registration: "N8848Q",
		TypeCode:     "B38M",
		Operator:     "Southwest Airlines",
		Category:     "A3",
	}

	tests := []struct {
		name    string
		entries []Entry
		route   string
		wantID  string
	}{
		{
			name: "exact hex normalized both sides",
			entries: []Entry{
				{ID: "r1", Field: FieldHex, Value: " ac6668 ", Enabled: true},
			},
			wantID: "r1",
		},
		{
			name: "highest priority wins",
			entries: []Entry{
				{ID: "low", Field: FieldHex, Value: "ac6668", Enabled: true, Priority: 1},
				{ID: "high", Field: FieldHex, Value: "AC6668", Enabled: true, Priority: 5},
			},
			wantID: "high",
		},
		{
			name: "tie keeps first encountered",
			entries: []Entry{
				{ID: "first", Field: FieldHex, Value: "ac6668", Enabled: true, Priority: 3},
				{ID: "second", Field: FieldCallsign, Value: "swa3576", Enabled: true, Priority: 3},
			},
			wantID: "first",
		},
		{
			name: "disabled rule never matches",
			entries: []Entry{
				{ID: "off", Field: FieldHex, Value: "ac6668", Enabled: false},
			},
			wantID: "",
		},
		{
			name: "prefix on callsign",
			entries: []Entry{
				{ID: "swa", Field: FieldCallsign, Value: "SWA", Mode: ModePrefix, Enabled: true},
			},
			wantID: "swa",
		},
		{
			name: "contains on owner",
			entries: []Entry{
				{ID: "own", Field: FieldOperator, Value: "southwest", Mode: ModeContains, Enabled: true},
			},
			wantID: "own",
		},
		{
			name: "route match via synthesized route",
			entries: []Entry{
				{ID: "rt", Field: FieldRoute, Value: "kfll-katl", Enabled: true},
			},
			route:  "KFLL-KATL",
			wantID: "rt",
		},
		{
			name: "blank value never matches",
			entries: []Entry{
				{ID: "blank", Field: FieldRegistration, Value: "  ", Enabled: true},
			},
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMatcher(tt.entries)
			got := m.MatchFor(&ac, tt.route)
			if tt.wantID == "" {
				if got != nil {
					t.Fatalf("MatchFor = %q, want no match", got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("MatchFor = nil, want %q", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("MatchFor = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

func TestRuleID(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{"explicit id", Entry{ID: "x", Label: "y", Field: FieldHex, Value: "abc"}, "x"},
		{"label fallback", Entry{Label: "y", Field: FieldHex, Value: "abc"}, "y"},
		{"field value fallback", Entry{Field: FieldHex, Value: "abc"}, "hex:abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.RuleID(); got != tt.want {
				t.Errorf("RuleID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotifierCooldownPerRuleAndAircraft(t *testing.T) {
	entries := []Entry{
		{ID: "hexrule", Field: FieldHex, Value: "ac6668", Enabled: true, Notify: true},
		{ID: "csrule", Field: FieldCallsign, Value: "SWA", Mode: ModePrefix, Enabled: true, Notify: true},
	}
	n := NewNotifier(NewMatcher(entries), 2*time.Minute)

	snap := &adsb.Snapshot{
		Aircraft: []adsb.Aircraft{{Hex: "ac6668", Flight: "SWA3576"}},
	}
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	fired := n.Evaluate(snap, nil, now)
	if len(fired) != 2 {
		t.Fatalf("first pass fired %d alerts, want 2 (one per rule)", len(fired))
	}

	// Within cooldown: both pairings suppressed.
	fired = n.Evaluate(snap, nil, now.Add(30*time.Second))
	if len(fired) != 0 {
		t.Fatalf("second pass fired %d alerts, want 0", len(fired))
	}

	// After cooldown: both fire again.
	fired = n.Evaluate(snap, nil, now.Add(3*time.Minute))
	if len(fired) != 2 {
		t.Fatalf("third pass fired %d alerts, want 2", len(fired))
	}
}

func TestNotifierSkipsNonNotifyRules(t *testing.T) {
	entries := []Entry{
		{ID: "silent", Field: FieldHex, Value: "ac6668", Enabled: true, Notify: false},
	}
	n := NewNotifier(NewMatcher(entries), time.Minute)
	snap := &adsb.Snapshot{Aircraft: []adsb.Aircraft{{Hex: "ac6668"}}}

	if fired := n.Evaluate(snap, nil, time.Now()); len(fired) != 0 {
		t.Fatalf("fired %d alerts for notify=false rule, want 0", len(fired))
	}
}

func TestParseRules(t *testing.T) {
	data := []byte(`
[[watchlist]]
id = "police"
label = "Police helicopters"
match = "owner"
value = "sheriff"
mode = "contains"
notify = true
priority = 5

[[watchlist]]
match = "hex"
value = "ac6668"
enabled = false
`)

	entries, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("parsed %d entries, want 2", len(entries))
	}

	first := entries[0]
	if first.Field != FieldOperator || first.Mode != ModeContains || !first.Notify || first.Priority != 5 {
		t.Errorf("first entry parsed wrong: %+v", first)
	}
	if !first.Enabled {
		t.Error("enabled should default to true")
	}

	second := entries[1]
	if second.Enabled {
		t.Error("explicit enabled=false not honored")
	}
	if !second.Notify {
		t.Error("notify should default to true")
	}
	if second.RuleID() != "hex:ac6668" {
		t.Errorf("RuleID = %q, want hex:ac6668", second.RuleID())
	}
}

func TestParsedRuleNotifiesByDefault(t *testing.T) {
	entries, err := Parse([]byte("[[watchlist]]\nmatch = \"hex\"\nvalue = \"ac6668\"\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	n := NewNotifier(NewMatcher(entries), time.Minute)
	snap := &adsb.Snapshot{Aircraft: []adsb.Aircraft{{Hex: "ac6668"}}}

	if fired := n.Evaluate(snap, nil, time.Now()); len(fired) != 1 {
		t.Fatalf("fired %d alerts for rule without a notify key, want 1", len(fired))
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	if _, err := Parse([]byte("[[watchlist]]\nmatch = \"bogus\"\nvalue = \"x\"\n")); err == nil {
		t.Fatal("expected error for unknown match field")
	}
}
