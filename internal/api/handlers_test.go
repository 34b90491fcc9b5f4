package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/config"
	"github.com/j4v3l/skydeck/internal/engine"
	"github.com/j4v3l/skydeck/internal/geo"
	"github.com/j4v3l/skydeck/internal/routes"
	"github.com/j4v3l/skydeck/internal/watchlist"
	"github.com/j4v3l/skydeck/internal/websocket"
	"github.com/j4v3l/skydeck/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testConfig() *config.Config {
	lat, lon := 26.0, -80.0
	cfg := &config.Config{}
	cfg.Site.Latitude = &lat
	cfg.Site.Longitude = &lon
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func testSnapshot() *adsb.Snapshot {
	return &adsb.Snapshot{
		Aircraft: []adsb.Aircraft{
			{
				Hex:          "ac6668",
				Flight:       "SWA3576 ",
				Registration: "N8835Q",
				AltBaro:      iptr(12000),
				GS:           fptr(310),
				Lat:          fptr(26.2),
				Lon:          fptr(-80.1),
				Seen:         fptr(0.4),
			},
			{Flight: "NOHEX1"},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *engine.Loop) {
	t.Helper()
	log := testLogger(t)
	cfg := testConfig()

	e := engine.New(engine.Options{
		Site:      &geo.Point{Lat: 26.0, Lon: -80.0},
		StaleSecs: 60,
	}, watchlist.NewMatcher(nil), routes.NewCache(false, time.Hour, 15*time.Second), nil, log)
	e.ApplyUpdate(testSnapshot(), time.Now())

	loop := engine.NewLoop(e, nil, nil, nil, time.Second, log)
	router := NewRouter(loop, cfg, log, websocket.NewServer(log))
	srv := httptest.NewServer(router.Routes())
	t.Cleanup(srv.Close)
	return srv, loop
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestGetAllAircraft(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Aircraft []AircraftSummary `json:"aircraft"`
		Count    int               `json:"count"`
	}
	resp := getJSON(t, srv.URL+"/api/v1/aircraft", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Count != 2 {
		t.Fatalf("count = %d, want 2", body.Count)
	}

	var found *AircraftSummary
	for i := range body.Aircraft {
		if body.Aircraft[i].Key == "hex:ac6668" {
			found = &body.Aircraft[i]
		}
	}
	if found == nil {
		t.Fatal("hex:ac6668 not in response")
	}
	if found.Flight != "SWA3576" {
		t.Errorf("flight = %q, want trimmed callsign", found.Flight)
	}
	if found.DistanceMi == nil || *found.DistanceMi <= 0 {
		t.Error("expected a positive distance from the site")
	}
	if found.Stale {
		t.Error("fresh aircraft marked stale")
	}
}

func TestGetAircraftByKey(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("bare hex", func(t *testing.T) {
		var s AircraftSummary
		resp := getJSON(t, srv.URL+"/api/v1/aircraft/AC6668", &s)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if s.Key != "hex:ac6668" {
			t.Errorf("key = %q, want hex:ac6668", s.Key)
		}
	})

	t.Run("callsign key", func(t *testing.T) {
		var s AircraftSummary
		resp := getJSON(t, srv.URL+"/api/v1/aircraft/flt:nohex1", &s)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		if s.Key != "flt:nohex1" {
			t.Errorf("key = %q, want flt:nohex1", s.Key)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		resp := getJSON(t, srv.URL+"/api/v1/aircraft/hex:ffffff", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestGetStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Status        string `json:"status"`
		AircraftCount int    `json:"aircraft_count"`
	}
	resp := getJSON(t, srv.URL+"/api/v1/status", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.AircraftCount != 2 {
		t.Errorf("aircraft_count = %d, want 2", body.AircraftCount)
	}
}

func TestToggleFavorite(t *testing.T) {
	srv, loop := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	resp, err := http.Post(srv.URL+"/api/v1/favorites/ac6668", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Hex      string `json:"hex"`
		Favorite bool   `json:"favorite"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Hex != "ac6668" || !body.Favorite {
		t.Fatalf("got %+v, want ac6668 favorited", body)
	}
}

func TestToggleFavoriteRejectsBlank(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/favorites/%20", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
