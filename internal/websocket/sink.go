package websocket

import (
	"github.com/j4v3l/skydeck/internal/engine"
)

// AlertBroadcaster adapts the hub to the engine's alert sink interface.
// Broadcast is queue-and-forget, so the engine loop never blocks on a
// slow client.
type AlertBroadcaster struct {
	server *Server
}

// NewAlertBroadcaster wraps a hub as an alert sink.
func NewAlertBroadcaster(server *Server) *AlertBroadcaster {
	return &AlertBroadcaster{server: server}
}

// Alert implements engine.AlertSink.
func (b *AlertBroadcaster) Alert(a engine.Alert) {
	b.server.Broadcast(&Message{
		Type: MessageTypeAlert,
		Data: map[string]any{
			"kind":            a.Kind,
			"key":             a.Key,
			"message":         a.Message,
			"distance_mi":     a.Distance,
			"bearing_deg":     a.Bearing,
			"bearing_mag_deg": a.BearingMag,
			"at":              a.At,
		},
	})
}
