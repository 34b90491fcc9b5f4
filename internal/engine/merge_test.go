package engine

import (
	"testing"

	"github.com/j4v3l/skydeck/internal/adsb"
)

func TestMergeSnapshotsHeaderFields(t *testing.T) {
	prev := &adsb.Snapshot{Now: fptr(100), Messages: uptr(5000)}
	next := &adsb.Snapshot{}

	merged := mergeSnapshots(next, prev)
	if merged.Now == nil || *merged.Now != 100 {
		t.Errorf("now = %v, want fill-forward 100", merged.Now)
	}
	if merged.Messages == nil || *merged.Messages != 5000 {
		t.Errorf("messages = %v, want fill-forward 5000", merged.Messages)
	}

	// Present header values are kept.
	next = &adsb.Snapshot{Now: fptr(200)}
	merged = mergeSnapshots(next, prev)
	if *merged.Now != 200 {
		t.Errorf("now = %v, want fresh 200", *merged.Now)
	}
}

func TestMergeSnapshotsDoesNotResurrect(t *testing.T) {
	prev := snapWith(adsb.Aircraft{Hex: "gone", Registration: "N123"})
	next := snapWith(adsb.Aircraft{Hex: "new"})

	merged := mergeSnapshots(next, prev)
	if len(merged.Aircraft) != 1 || merged.Aircraft[0].Hex != "new" {
		t.Fatalf("merge resurrected vanished aircraft: %+v", merged.Aircraft)
	}
}

func TestMergeSnapshotsMatchesByIdentityKey(t *testing.T) {
	// Previous cycle keyed by callsign (no hex), next cycle same callsign.
	prev := snapWith(adsb.Aircraft{Flight: "SWA3576 ", Registration: "N8848Q"})
	next := snapWith(adsb.Aircraft{Flight: "SWA3576"})

	merged := mergeSnapshots(next, prev)
	if got := merged.Aircraft[0].Registration; got != "N8848Q" {
		t.Errorf("registration = %q, want fill via callsign key", got)
	}
}

func TestMergeSnapshotsInputsUntouched(t *testing.T) {
	prev := snapWith(adsb.Aircraft{Hex: "a", Registration: "N123"})
	next := snapWith(adsb.Aircraft{Hex: "a"})

	_ = mergeSnapshots(next, prev)
	if next.Aircraft[0].Registration != "" {
		t.Error("merge mutated the raw snapshot")
	}
}
