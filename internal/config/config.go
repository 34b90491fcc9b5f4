package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`    // HTTP server settings
	Feed      FeedConfig      `toml:"feed"`      // ADS-B feed polling settings
	Site      SiteConfig      `toml:"site"`      // Receiver location
	Display   DisplayConfig   `toml:"display"`   // Snapshot smoothing and publish cadence
	Rates     RatesConfig     `toml:"rates"`     // Message rate estimation tuning
	Alerts    AlertsConfig    `toml:"alerts"`    // Proximity and watchlist alerting
	Routes    RoutesConfig    `toml:"routes"`    // Route lookup service settings
	Watchlist WatchlistConfig `toml:"watchlist"` // Watchlist rules file
	Storage   StorageConfig   `toml:"storage"`   // Sighting log persistence
	Logging   LoggingConfig   `toml:"logging"`   // Application logging
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host             string `toml:"host"`                  // Address to bind to
	Port             int    `toml:"port"`                  // HTTP port
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Max duration for reading a request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Max duration for writing a response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Keep-alive idle limit
}

// FeedConfig contains ADS-B source polling settings.
type FeedConfig struct {
	URL                 string `toml:"url"`                   // Feed URL (e.g. http://tar1090.local/data/aircraft.json)
	RefreshIntervalSecs int    `toml:"refresh_interval_secs"` // How often to poll
	TimeoutSecs         int    `toml:"timeout_secs"`          // Per-request timeout
	StaleSecs           int    `toml:"stale_secs"`            // Age after which aircraft data counts as stale
	LowNIC              int64  `toml:"low_nic"`               // NIC below this flags low position integrity
	LowNACP             int64  `toml:"low_nacp"`              // NACp below this flags low position accuracy
}

// SiteConfig is the receiver location. Proximity alerting requires it;
// leave lat/lon unset to disable.
type SiteConfig struct {
	Latitude      *float64 `toml:"latitude"`
	Longitude     *float64 `toml:"longitude"`
	ElevationFeet float64  `toml:"elevation_feet"`
}

// DisplayConfig controls snapshot smoothing and publish cadence.
type DisplayConfig struct {
	Smooth      *bool `toml:"smooth"`       // Hold publishes to the UI interval (default true)
	SmoothMerge *bool `toml:"smooth_merge"` // Fill transiently missing fields from the prior snapshot (default true)
	UIFPS       int   `toml:"ui_fps"`       // Publish rate ceiling in frames per second
	TrailLen    int   `toml:"trail_len"`    // Max stored trail points per aircraft
}

// RatesConfig tunes message rate estimation.
type RatesConfig struct {
	WindowMs int     `toml:"window_ms"` // Sample window for the rate estimators
	MinSecs  float64 `toml:"min_secs"`  // Minimum rate divisor in seconds
}

// AlertsConfig controls proximity and watchlist alerting.
type AlertsConfig struct {
	RadiusMi     float64 `toml:"radius_mi"`     // Proximity alert radius
	OverpassMi   float64 `toml:"overpass_mi"`   // Distance labeled as directly overhead
	CooldownSecs int     `toml:"cooldown_secs"` // Per-aircraft re-alert suppression
	Desktop      bool    `toml:"desktop"`       // Emit desktop notifications
}

// RoutesConfig configures the route lookup service.
type RoutesConfig struct {
	Enabled             bool   `toml:"enabled"`
	BaseURL             string `toml:"base_url"`              // adsbdb-compatible base URL
	TTLSecs             int    `toml:"ttl_secs"`              // Cache entry lifetime
	RefreshIntervalSecs int    `toml:"refresh_interval_secs"` // Min spacing between lookups per callsign
	BatchLimit          int    `toml:"batch_limit"`           // Max lookups issued per tick
	TimeoutSecs         int    `toml:"timeout_secs"`          // Per-request timeout
}

// WatchlistConfig points at the watchlist rules and favorites files.
type WatchlistConfig struct {
	RulesPath     string `toml:"rules_path"`
	FavoritesPath string `toml:"favorites_path"`
}

// StorageConfig contains sighting log persistence settings.
type StorageConfig struct {
	Enabled    bool   `toml:"enabled"`
	SQLitePath string `toml:"sqlite_path"` // Path to the sightings database file
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", or "error"
	Format string `toml:"format"` // "json" or "console"
}

// Load reads and validates the configuration from a file.
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations
// in order of preference. A completely absent config yields defaults.
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	for _, path := range searchPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	config := &Config{}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate fills defaults and rejects values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeoutSecs <= 0 {
		c.Server.ReadTimeoutSecs = 30
	}
	if c.Server.WriteTimeoutSecs <= 0 {
		c.Server.WriteTimeoutSecs = 30
	}
	if c.Server.IdleTimeoutSecs <= 0 {
		c.Server.IdleTimeoutSecs = 60
	}

	if c.Feed.URL == "" {
		c.Feed.URL = "http://localhost/tar1090/data/aircraft.json"
	}
	if c.Feed.RefreshIntervalSecs <= 0 {
		c.Feed.RefreshIntervalSecs = 2
	}
	if c.Feed.TimeoutSecs <= 0 {
		c.Feed.TimeoutSecs = 5
	}
	if c.Feed.StaleSecs <= 0 {
		c.Feed.StaleSecs = 60
	}
	if c.Feed.LowNIC <= 0 {
		c.Feed.LowNIC = 5
	}
	if c.Feed.LowNACP <= 0 {
		c.Feed.LowNACP = 8
	}

	if (c.Site.Latitude == nil) != (c.Site.Longitude == nil) {
		return fmt.Errorf("site latitude and longitude must be set together")
	}
	if c.Site.Latitude != nil {
		if *c.Site.Latitude < -90 || *c.Site.Latitude > 90 {
			return fmt.Errorf("invalid site latitude: %f", *c.Site.Latitude)
		}
		if *c.Site.Longitude < -180 || *c.Site.Longitude > 180 {
			return fmt.Errorf("invalid site longitude: %f", *c.Site.Longitude)
		}
	}

	if c.Display.UIFPS <= 0 {
		c.Display.UIFPS = 10
	}
	if c.Display.TrailLen <= 0 {
		c.Display.TrailLen = 6
	}

	if c.Rates.WindowMs <= 0 {
		c.Rates.WindowMs = 300
	}
	if c.Rates.MinSecs <= 0 {
		c.Rates.MinSecs = 0.25
	}

	if c.Alerts.RadiusMi <= 0 {
		c.Alerts.RadiusMi = 10.0
	}
	if c.Alerts.OverpassMi <= 0 {
		c.Alerts.OverpassMi = 0.5
	}
	if c.Alerts.CooldownSecs <= 0 {
		c.Alerts.CooldownSecs = 120
	}

	if c.Routes.BaseURL == "" {
		c.Routes.BaseURL = "https://api.adsb.lol"
	}
	if c.Routes.TTLSecs <= 0 {
		c.Routes.TTLSecs = 3600
	}
	if c.Routes.RefreshIntervalSecs <= 0 {
		c.Routes.RefreshIntervalSecs = 15
	}
	if c.Routes.BatchLimit <= 0 {
		c.Routes.BatchLimit = 20
	}
	if c.Routes.TimeoutSecs <= 0 {
		c.Routes.TimeoutSecs = 6
	}

	if c.Watchlist.RulesPath == "" {
		c.Watchlist.RulesPath = "watchlist.toml"
	}
	if c.Watchlist.FavoritesPath == "" {
		c.Watchlist.FavoritesPath = "favorites.txt"
	}

	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "skydeck.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	return nil
}

// IsSmooth reports the effective smoothing setting (default on).
func (c *DisplayConfig) IsSmooth() bool {
	return c.Smooth == nil || *c.Smooth
}

// IsSmoothMerge reports the effective merge setting (default on).
func (c *DisplayConfig) IsSmoothMerge() bool {
	return c.SmoothMerge == nil || *c.SmoothMerge
}
