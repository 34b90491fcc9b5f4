package routes

import "testing"

func TestParseRoutesFromArray(t *testing.T) {
	body := []byte(`[
		{"callsign": "AAL1", "origin": "KJFK", "destination": "KMIA", "route": "KJFK-KMIA"}
	]`)

	results, err := ParseRoutes(body)
	if err != nil {
		t.Fatalf("ParseRoutes failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Callsign != "AAL1" || r.Origin != "KJFK" || r.Destination != "KMIA" || r.Route != "KJFK-KMIA" {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestParseRoutesFromMap(t *testing.T) {
	body := []byte(`{"routes": {"DAL2": "KLAX-KATL"}}`)

	results, err := ParseRoutes(body)
	if err != nil {
		t.Fatalf("ParseRoutes failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Callsign != "DAL2" || results[0].Route != "KLAX-KATL" {
		t.Errorf("unexpected result: %+v", results[0])
	}
}

func TestParseRoutesNestedArray(t *testing.T) {
	body := []byte(`{"data": [{"call": "SWA3576", "airport1": "KSFO", "airport2": "KSEA"}]}`)

	results, err := ParseRoutes(body)
	if err != nil {
		t.Fatalf("ParseRoutes failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Callsign != "SWA3576" || r.Origin != "KSFO" || r.Destination != "KSEA" {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestParseRoutesTopLevelObjectMap(t *testing.T) {
	body := []byte(`{"JBU100": {"origin": "KBOS", "dest": "KFLL"}}`)

	results, err := ParseRoutes(body)
	if err != nil {
		t.Fatalf("ParseRoutes failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Callsign != "JBU100" || r.Origin != "KBOS" || r.Destination != "KFLL" {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestParseRouteObjectSplitsRouteText(t *testing.T) {
	body := []byte(`[{"flight": "UAL5", "route": "KDEN-KORD"}]`)

	results, err := ParseRoutes(body)
	if err != nil {
		t.Fatalf("ParseRoutes failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Origin != "KDEN" || r.Destination != "KORD" {
		t.Errorf("route text not split: %+v", r)
	}
}

func TestSplitRoute(t *testing.T) {
	tests := []struct {
		in           string
		wantO, wantD string
		wantOK       bool
	}{
		{"KDEN-KORD", "KDEN", "KORD", true},
		{" KDEN - KORD ", "KDEN", "KORD", true},
		{"INVALID", "", "", false},
		{" - ", "", "", false},
		{"A-B-C", "", "", false},
	}
	for _, tt := range tests {
		o, d, ok := SplitRoute(tt.in)
		if o != tt.wantO || d != tt.wantD || ok != tt.wantOK {
			t.Errorf("SplitRoute(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, o, d, ok, tt.wantO, tt.wantD, tt.wantOK)
		}
	}
}
