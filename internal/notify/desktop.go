// Package notify bridges engine alerts to desktop notifications.
package notify

import (
	"github.com/gen2brain/beeep"

	"github.com/j4v3l/skydeck/internal/engine"
	"github.com/j4v3l/skydeck/pkg/logger"
)

// Desktop raises a system notification for each alert.
type Desktop struct {
	logger *logger.Logger
}

// NewDesktop creates a desktop notification sink.
func NewDesktop(log *logger.Logger) *Desktop {
	return &Desktop{logger: log.Named("notify")}
}

// Alert shows the notification. The actual call can block on the system
// notification daemon, so it runs off the engine loop.
func (d *Desktop) Alert(a engine.Alert) {
	go func() {
		if err := beeep.Notify(title(a.Kind), a.Message, ""); err != nil {
			d.logger.Warn("Desktop notification failed",
				logger.String("kind", a.Kind),
				logger.Error(err))
		}
	}()
}

func title(kind string) string {
	switch kind {
	case "proximity":
		return "Aircraft nearby"
	case "watchlist":
		return "Watchlist match"
	default:
		return "skydeck"
	}
}
