package adsb

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Snapshot represents one complete feed response from the ADS-B source.
// Numeric header fields are pointers because feeds routinely omit them.
type Snapshot struct {
	Now      *float64   `json:"now,omitempty"`
	Messages *uint64    `json:"messages,omitempty"`
	Aircraft []Aircraft `json:"aircraft"`
}

// Aircraft represents a single target in the raw feed. Every numeric field
// is optional: sources omit fields freely, and some encode numbers as
// strings, so decoding is handled field by field in UnmarshalJSON.
type Aircraft struct {
	Hex          string   `json:"hex,omitempty"`
	Type         string   `json:"type,omitempty"`
	Flight       string   `json:"flight,omitempty"`
	Registration string   `json:"r,omitempty"`
	TypeCode     string   `json:"t,omitempty"`
	Description  string   `json:"desc,omitempty"`
	Operator     string   `json:"ownOp,omitempty"`
	Category     string   `json:"category,omitempty"`
	Squawk       string   `json:"squawk,omitempty"`
	AltBaro      *int64   `json:"alt_baro,omitempty"`
	AltGeom      *int64   `json:"alt_geom,omitempty"`
	GS           *float64 `json:"gs,omitempty"`
	Track        *float64 `json:"track,omitempty"`
	BaroRate     *int64   `json:"baro_rate,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lon          *float64 `json:"lon,omitempty"`
	SeenPos      *float64 `json:"seen_pos,omitempty"`
	NIC          *int64   `json:"nic,omitempty"`
	NACP         *int64   `json:"nac_p,omitempty"`
	NACV         *int64   `json:"nac_v,omitempty"`
	SIL          *int64   `json:"sil,omitempty"`
	Messages     *uint64  `json:"messages,omitempty"`
	Seen         *float64 `json:"seen,omitempty"`
	RSSI         *float64 `json:"rssi,omitempty"`
}

// UnmarshalJSON accepts both the readsb "aircraft" key and the
// adsb.fi/adsbexchange "ac" alias for the target array.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	s.Now = looseFloat(fields["now"])
	s.Messages = looseUint(fields["messages"])

	raw, ok := fields["aircraft"]
	if !ok {
		raw = fields["ac"]
	}
	s.Aircraft = nil
	if len(raw) > 0 {
		// Individual targets that fail to decode are dropped rather than
		// failing the whole snapshot.
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		s.Aircraft = make([]Aircraft, 0, len(items))
		for _, item := range items {
			var a Aircraft
			if err := json.Unmarshal(item, &a); err != nil {
				continue
			}
			s.Aircraft = append(s.Aircraft, a)
		}
	}
	return nil
}

// UnmarshalJSON decodes a target leniently: numeric fields accept JSON
// numbers or numeric strings, and anything unparsable is left unset.
func (a *Aircraft) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	a.Hex = looseString(fields["hex"])
	a.Type = looseString(fields["type"])
	a.Flight = looseString(fields["flight"])
	a.Registration = looseString(fields["r"])
	a.TypeCode = looseString(fields["t"])
	a.Description = looseString(fields["desc"])
	a.Operator = looseString(fields["ownOp"])
	a.Category = looseString(fields["category"])
	a.Squawk = looseString(fields["squawk"])
	a.AltBaro = looseInt(fields["alt_baro"])
	a.AltGeom = looseInt(fields["alt_geom"])
	a.GS = looseFloat(fields["gs"])
	a.Track = looseFloat(fields["track"])
	a.BaroRate = looseInt(fields["baro_rate"])
	a.Lat = looseFloat(fields["lat"])
	a.Lon = looseFloat(fields["lon"])
	a.SeenPos = looseFloat(fields["seen_pos"])
	a.NIC = looseInt(fields["nic"])
	a.NACP = looseInt(fields["nac_p"])
	a.NACV = looseInt(fields["nac_v"])
	a.SIL = looseInt(fields["sil"])
	a.Messages = looseUint(fields["messages"])
	a.Seen = looseFloat(fields["seen"])
	a.RSSI = looseFloat(fields["rssi"])
	return nil
}

// looseFloat parses a raw JSON value as a float64, accepting numbers and
// numeric strings. Returns nil for null, absent, or unparsable values.
func looseFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &v
		}
	}
	return nil
}

// looseInt parses like looseFloat but truncates fractional values, so
// "alt_baro": 1250.0 and "alt_baro": "1250" both decode to 1250.
func looseInt(raw json.RawMessage) *int64 {
	f := looseFloat(raw)
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}

func looseUint(raw json.RawMessage) *uint64 {
	f := looseFloat(raw)
	if f == nil || *f < 0 {
		return nil
	}
	v := uint64(*f)
	return &v
}

func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// Clone returns a deep copy; the engine publishes snapshots by value and
// never mutates one after publication.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Now:      cloneFloat(s.Now),
		Messages: cloneUint(s.Messages),
	}
	if s.Aircraft != nil {
		out.Aircraft = make([]Aircraft, len(s.Aircraft))
		for i := range s.Aircraft {
			out.Aircraft[i] = s.Aircraft[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of a single target.
func (a Aircraft) Clone() Aircraft {
	out := a
	out.AltBaro = cloneInt(a.AltBaro)
	out.AltGeom = cloneInt(a.AltGeom)
	out.GS = cloneFloat(a.GS)
	out.Track = cloneFloat(a.Track)
	out.BaroRate = cloneInt(a.BaroRate)
	out.Lat = cloneFloat(a.Lat)
	out.Lon = cloneFloat(a.Lon)
	out.SeenPos = cloneFloat(a.SeenPos)
	out.NIC = cloneInt(a.NIC)
	out.NACP = cloneInt(a.NACP)
	out.NACV = cloneInt(a.NACV)
	out.SIL = cloneInt(a.SIL)
	out.Messages = cloneUint(a.Messages)
	out.Seen = cloneFloat(a.Seen)
	out.RSSI = cloneFloat(a.RSSI)
	return out
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneUint(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// HasPosition reports whether the target carries a usable lat/lon pair.
func (a *Aircraft) HasPosition() bool {
	return a.Lat != nil && a.Lon != nil
}

// CallsignTrimmed returns the flight callsign with padding removed.
func (a *Aircraft) CallsignTrimmed() string {
	return strings.TrimSpace(a.Flight)
}
