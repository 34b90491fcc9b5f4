package engine

import (
	"sort"
	"testing"
	"time"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/routes"
	"github.com/j4v3l/skydeck/internal/watchlist"
	"github.com/j4v3l/skydeck/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	return New(opts,
		watchlist.NewMatcher(nil),
		routes.NewCache(false, time.Hour, 15*time.Second),
		nil,
		testLogger(t),
	)
}

func TestApplyUpdatePublishesImmediatelyWithoutSmoothing(t *testing.T) {
	e := newTestEngine(t, Options{Smooth: false})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	e.ApplyUpdate(snapWith(adsb.Aircraft{Hex: "ac6668"}), now)

	if e.display == nil || len(e.display.Aircraft) != 1 {
		t.Fatal("display snapshot not published with smoothing off")
	}
}

func TestMaybeSwapSnapshotCadence(t *testing.T) {
	e := newTestEngine(t, Options{Smooth: true, UIInterval: 100 * time.Millisecond})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	e.ApplyUpdate(snapWith(adsb.Aircraft{Hex: "ac6668"}), now)
	if e.display != nil {
		t.Fatal("display published before swap with smoothing on")
	}

	if !e.MaybeSwapSnapshot(now) {
		t.Fatal("first swap refused")
	}
	if e.MaybeSwapSnapshot(now.Add(50 * time.Millisecond)) {
		t.Fatal("swap allowed inside UI interval")
	}
	if !e.MaybeSwapSnapshot(now.Add(150 * time.Millisecond)) {
		t.Fatal("swap refused after UI interval elapsed")
	}
}

func TestMaybeSwapSnapshotZeroIntervalAlwaysSwaps(t *testing.T) {
	e := newTestEngine(t, Options{Smooth: true})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	e.ApplyUpdate(snapWith(adsb.Aircraft{Hex: "ac6668"}), now)
	for i := 0; i < 3; i++ {
		if !e.MaybeSwapSnapshot(now.Add(time.Duration(i) * time.Millisecond)) {
			t.Fatalf("swap %d refused with zero interval", i)
		}
	}
}

func TestSwapMergeFillForward(t *testing.T) {
	e := newTestEngine(t, Options{Smooth: true, SmoothMerge: true})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	first := snapWith(adsb.Aircraft{Hex: "ac6668", Registration: "N123", GS: fptr(250)})
	e.ApplyUpdate(first, now)
	e.MaybeSwapSnapshot(now)

	// Registration and speed transiently vanish from the feed.
	second := snapWith(adsb.Aircraft{Hex: "ac6668"})
	e.ApplyUpdate(second, now.Add(2*time.Second))
	e.MaybeSwapSnapshot(now.Add(2 * time.Second))

	ac := e.display.Aircraft[0]
	if ac.Registration != "N123" {
		t.Errorf("registration = %q, want fill-forward N123", ac.Registration)
	}
	if ac.GS == nil || *ac.GS != 250 {
		t.Errorf("gs = %v, want fill-forward 250", ac.GS)
	}

	// A fresh value always wins over the old one.
	third := snapWith(adsb.Aircraft{Hex: "ac6668", Registration: "N999"})
	e.ApplyUpdate(third, now.Add(4*time.Second))
	e.MaybeSwapSnapshot(now.Add(4 * time.Second))

	if got := e.display.Aircraft[0].Registration; got != "N999" {
		t.Errorf("registration = %q, want fresh N999", got)
	}
}

func TestSwapWithoutMergeDropsStaleFields(t *testing.T) {
	e := newTestEngine(t, Options{Smooth: true, SmoothMerge: false})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	e.ApplyUpdate(snapWith(adsb.Aircraft{Hex: "ac6668", Registration: "N123"}), now)
	e.MaybeSwapSnapshot(now)
	e.ApplyUpdate(snapWith(adsb.Aircraft{Hex: "ac6668"}), now.Add(2*time.Second))
	e.MaybeSwapSnapshot(now.Add(2 * time.Second))

	if got := e.display.Aircraft[0].Registration; got != "" {
		t.Errorf("registration = %q, want empty without merge", got)
	}
}

func TestApplyErrorRetainsDisplay(t *testing.T) {
	e := newTestEngine(t, Options{Smooth: false})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	e.ApplyUpdate(snapWith(adsb.Aircraft{Hex: "ac6668"}), now)
	e.ApplyError("connection refused", now.Add(2*time.Second))

	if e.display == nil || len(e.display.Aircraft) != 1 {
		t.Fatal("display snapshot lost on feed error")
	}
	v := e.BuildView(now.Add(2 * time.Second))
	if v.LastError != "connection refused" {
		t.Errorf("view last error = %q", v.LastError)
	}
	if len(v.Snapshot.Aircraft) != 1 {
		t.Error("view snapshot lost on feed error")
	}
}

func TestNotificationRingCapped(t *testing.T) {
	e := newTestEngine(t, Options{})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		e.pushAlert(Alert{Kind: "proximity", Key: "hex:a", Message: "x", At: now.Add(time.Duration(i) * time.Second)})
	}

	if len(e.notifications) != notificationCap {
		t.Fatalf("ring length = %d, want %d", len(e.notifications), notificationCap)
	}
	// Oldest entries were evicted.
	if got := e.notifications[0].At; got != now.Add(5*time.Second) {
		t.Errorf("oldest retained alert at %v, want %v", got, now.Add(5*time.Second))
	}
}

func TestToggleFavorite(t *testing.T) {
	e := newTestEngine(t, Options{})

	var saved []string
	e.SetFavoritesSaver(func(hexes []string) {
		saved = append([]string(nil), hexes...)
	})

	if !e.ToggleFavorite(" AC6668 ") {
		t.Fatal("first toggle should favorite")
	}
	sort.Strings(saved)
	if len(saved) != 1 || saved[0] != "ac6668" {
		t.Errorf("saved = %v, want [ac6668]", saved)
	}

	if e.ToggleFavorite("ac6668") {
		t.Fatal("second toggle should unfavorite")
	}
	if len(saved) != 0 {
		t.Errorf("saved after unfavorite = %v, want empty", saved)
	}
}

func TestFavoritesLoadedAtConstruction(t *testing.T) {
	e := New(Options{},
		watchlist.NewMatcher(nil),
		routes.NewCache(false, time.Hour, 15*time.Second),
		[]string{" AC6668 ", "abc123"},
		testLogger(t),
	)

	v := e.BuildView(time.Now())
	if !v.Favorites["hex:ac6668"] || !v.Favorites["hex:abc123"] {
		t.Errorf("favorites = %v, want both keys", v.Favorites)
	}
}

func TestBuildViewSnapshotIsolated(t *testing.T) {
	e := newTestEngine(t, Options{Smooth: false})
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	e.ApplyUpdate(snapWith(adsb.Aircraft{Hex: "ac6668", GS: fptr(250)}), now)
	v := e.BuildView(now)

	*v.Snapshot.Aircraft[0].GS = 0
	if *e.display.Aircraft[0].GS != 250 {
		t.Error("view shares snapshot storage with engine")
	}
}
