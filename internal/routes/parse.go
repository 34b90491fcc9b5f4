package routes

import (
	"encoding/json"
	"strings"
)

// Result is one resolved route lookup.
type Result struct {
	Callsign    string
	Origin      string
	Destination string
	Route       string
}

// ParseRoutes decodes a route service response. Providers disagree wildly
// on shape, so several layouts are accepted: a bare array of route objects,
// an array nested under a well-known key, a "routes" map of callsign to
// route text or object, and a top-level map of callsign to object.
func ParseRoutes(body []byte) ([]Result, error) {
	var top json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, err
	}

	var array []json.RawMessage
	if err := json.Unmarshal(top, &array); err == nil {
		return parseRouteArray(array), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(top, &obj); err != nil {
		return nil, err
	}

	for _, key := range []string{"routes", "route", "data", "planes", "aircraft", "results"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &array); err == nil {
			return parseRouteArray(array), nil
		}
	}

	if raw, ok := obj["routes"]; ok {
		if results := parseRouteMap(raw); len(results) > 0 {
			return results, nil
		}
	}

	var results []Result
	for key, raw := range obj {
		if r, ok := parseRouteObject(raw, key); ok {
			results = append(results, r)
		}
	}
	return results, nil
}

func parseRouteArray(items []json.RawMessage) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		if r, ok := parseRouteObject(item, ""); ok {
			results = append(results, r)
		}
	}
	return results
}

// parseRouteMap handles {"routes": {"DAL2": "KLAX-KATL", ...}} where the
// value is either route text or a full route object.
func parseRouteMap(raw json.RawMessage) []Result {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}

	var results []Result
	for key, value := range m {
		if r, ok := parseRouteObject(value, key); ok {
			results = append(results, r)
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err == nil && strings.TrimSpace(text) != "" {
			results = append(results, Result{
				Callsign: strings.TrimSpace(key),
				Route:    strings.TrimSpace(text),
			})
		}
	}
	return results
}

func parseRouteObject(raw json.RawMessage, keyCallsign string) (Result, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Result{}, false
	}

	callsign := extractString(obj, "callsign", "call", "flight", "cs")
	if callsign == "" {
		callsign = strings.TrimSpace(keyCallsign)
	}
	if callsign == "" {
		return Result{}, false
	}

	routeText := extractString(obj, "route", "flightroute", "_airport_codes_iata", "airport_codes")
	origin := extractString(obj, "origin", "orig", "from", "departure", "dep")
	if origin == "" {
		origin = extractString(obj, "airport1", "from_iata", "from_icao")
	}
	destination := extractString(obj, "destination", "dest", "to", "arrival", "arr")
	if destination == "" {
		destination = extractString(obj, "airport2", "to_iata", "to_icao")
	}

	if origin == "" && destination == "" && routeText != "" {
		if o, d, ok := SplitRoute(routeText); ok {
			origin, destination = o, d
		}
	}

	return Result{
		Callsign:    callsign,
		Origin:      origin,
		Destination: destination,
		Route:       routeText,
	}, true
}

func extractString(obj map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// SplitRoute splits "KDEN-KORD" style route text into origin and
// destination. Anything other than exactly two non-empty segments fails.
func SplitRoute(route string) (origin, destination string, ok bool) {
	parts := strings.Split(route, "-")
	if len(parts) != 2 {
		return "", "", false
	}
	origin = strings.TrimSpace(parts[0])
	destination = strings.TrimSpace(parts[1])
	if origin == "" || destination == "" {
		return "", "", false
	}
	return origin, destination, true
}
