package adsb

import "strings"

// Identity key prefixes. Hex-keyed and callsign-keyed targets live in the
// same maps, so the prefix keeps the two namespaces from colliding.
const (
	hexKeyPrefix      = "hex:"
	callsignKeyPrefix = "flt:"
)

// NormalizeHex canonicalizes an ICAO hex address: trimmed and lowercased.
// Normalization is idempotent.
func NormalizeHex(hex string) string {
	return strings.ToLower(strings.TrimSpace(hex))
}

// NormalizeCallsign canonicalizes a flight callsign the same way. Feeds pad
// callsigns with trailing spaces, so trimming is load-bearing here.
func NormalizeCallsign(callsign string) string {
	return strings.ToLower(strings.TrimSpace(callsign))
}

// Key derives the stable identity key for a target: the normalized hex
// address when present, otherwise the normalized callsign. Targets with
// neither have no identity and are skipped by all per-aircraft state.
func (a *Aircraft) Key() (string, bool) {
	if h := NormalizeHex(a.Hex); h != "" {
		return hexKeyPrefix + h, true
	}
	if c := NormalizeCallsign(a.Flight); c != "" {
		return callsignKeyPrefix + c, true
	}
	return "", false
}

// HexKey builds an identity key from a bare hex address, for callers that
// look up per-aircraft state by hex (favorites, API paths).
func HexKey(hex string) string {
	return hexKeyPrefix + NormalizeHex(hex)
}
