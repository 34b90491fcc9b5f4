package engine

import (
	"github.com/j4v3l/skydeck/internal/adsb"
)

// mergeSnapshots builds the next display snapshot from a fresh raw snapshot,
// filling fields the feed dropped this cycle from the previous display
// snapshot by identity key. The result is a new value; neither input is
// mutated. Aircraft that left the feed are not resurrected.
func mergeSnapshots(next, prev *adsb.Snapshot) *adsb.Snapshot {
	merged := next.Clone()
	if prev == nil {
		return merged
	}

	fillFloat(&merged.Now, prev.Now)
	fillUint(&merged.Messages, prev.Messages)

	prevByKey := make(map[string]*adsb.Aircraft, len(prev.Aircraft))
	for i := range prev.Aircraft {
		if key, ok := prev.Aircraft[i].Key(); ok {
			prevByKey[key] = &prev.Aircraft[i]
		}
	}

	for i := range merged.Aircraft {
		ac := &merged.Aircraft[i]
		key, ok := ac.Key()
		if !ok {
			continue
		}
		old, ok := prevByKey[key]
		if !ok {
			continue
		}
		fillAircraft(ac, old)
	}
	return merged
}

// fillAircraft copies each missing field of ac from old. Blank strings
// count as missing; present fields are never overwritten.
func fillAircraft(ac, old *adsb.Aircraft) {
	fillString(&ac.Hex, old.Hex)
	fillString(&ac.Type, old.Type)
	fillString(&ac.Flight, old.Flight)
	fillString(&ac.Registration, old.Registration)
	fillString(&ac.TypeCode, old.TypeCode)
	fillString(&ac.Description, old.Description)
	fillString(&ac.Operator, old.Operator)
	fillString(&ac.Category, old.Category)
	fillString(&ac.Squawk, old.Squawk)

	fillInt(&ac.AltBaro, old.AltBaro)
	fillInt(&ac.AltGeom, old.AltGeom)
	fillFloat(&ac.GS, old.GS)
	fillFloat(&ac.Track, old.Track)
	fillInt(&ac.BaroRate, old.BaroRate)

	fillFloat(&ac.Lat, old.Lat)
	fillFloat(&ac.Lon, old.Lon)
	fillFloat(&ac.SeenPos, old.SeenPos)

	fillInt(&ac.NIC, old.NIC)
	fillInt(&ac.NACP, old.NACP)
	fillInt(&ac.NACV, old.NACV)
	fillInt(&ac.SIL, old.SIL)
	fillUint(&ac.Messages, old.Messages)
	fillFloat(&ac.Seen, old.Seen)
	fillFloat(&ac.RSSI, old.RSSI)
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

func fillFloat(dst **float64, src *float64) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func fillInt(dst **int64, src *int64) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}

func fillUint(dst **uint64, src *uint64) {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
	}
}
