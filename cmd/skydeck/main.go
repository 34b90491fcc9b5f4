package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/j4v3l/skydeck/internal/adsb"
	"github.com/j4v3l/skydeck/internal/api"
	"github.com/j4v3l/skydeck/internal/config"
	"github.com/j4v3l/skydeck/internal/engine"
	"github.com/j4v3l/skydeck/internal/geo"
	"github.com/j4v3l/skydeck/internal/notify"
	"github.com/j4v3l/skydeck/internal/routes"
	"github.com/j4v3l/skydeck/internal/storage/sqlite"
	"github.com/j4v3l/skydeck/internal/watchlist"
	"github.com/j4v3l/skydeck/internal/websocket"
	"github.com/j4v3l/skydeck/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(Version)
		return
	}

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting skydeck", logger.String("version", Version))

	// Load watchlist rules and favorites
	rules, err := watchlist.Load(cfg.Watchlist.RulesPath)
	if err != nil {
		log.Error("Failed to load watchlist rules", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Loaded watchlist rules", logger.Int("count", len(rules)))

	favorites, err := config.LoadFavorites(cfg.Watchlist.FavoritesPath)
	if err != nil {
		log.Error("Failed to load favorites", logger.Error(err))
		os.Exit(1)
	}

	// Create the route cache and engine
	routeCache := routes.NewCache(
		cfg.Routes.Enabled,
		time.Duration(cfg.Routes.TTLSecs)*time.Second,
		time.Duration(cfg.Routes.RefreshIntervalSecs)*time.Second,
	)

	opts := engine.Options{
		Smooth:          cfg.Display.IsSmooth(),
		SmoothMerge:     cfg.Display.IsSmoothMerge(),
		UIInterval:      time.Second / time.Duration(cfg.Display.UIFPS),
		RateWindow:      time.Duration(cfg.Rates.WindowMs) * time.Millisecond,
		RateMinSecs:     cfg.Rates.MinSecs,
		TrailLen:        cfg.Display.TrailLen,
		NotifyRadiusMi:  cfg.Alerts.RadiusMi,
		OverpassMi:      cfg.Alerts.OverpassMi,
		NotifyCooldown:  time.Duration(cfg.Alerts.CooldownSecs) * time.Second,
		StaleSecs:       float64(cfg.Feed.StaleSecs),
		LowNIC:          cfg.Feed.LowNIC,
		LowNACP:         cfg.Feed.LowNACP,
		RouteBatchLimit: cfg.Routes.BatchLimit,
	}
	if cfg.Site.Latitude != nil && cfg.Site.Longitude != nil {
		opts.Site = &geo.Point{Lat: *cfg.Site.Latitude, Lon: *cfg.Site.Longitude}
		opts.SiteElevFt = cfg.Site.ElevationFeet
	}

	eng := engine.New(opts, watchlist.NewMatcher(rules), routeCache, favorites, log)

	eng.SetFavoritesSaver(func(hexes []string) {
		if err := config.SaveFavorites(cfg.Watchlist.FavoritesPath, hexes); err != nil {
			log.Error("Failed to save favorites", logger.Error(err))
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create WebSocket server and wire it as an alert sink
	wsServer := websocket.NewServer(log)
	go wsServer.Run(ctx)
	eng.AddAlertSink(websocket.NewAlertBroadcaster(wsServer))

	if cfg.Alerts.Desktop {
		eng.AddAlertSink(notify.NewDesktop(log))
	}

	// Sighting log
	var sightings *sqlite.SightingStorage
	if cfg.Storage.Enabled {
		sightings, err = sqlite.NewSightingStorage(cfg.Storage.SQLitePath, log)
		if err != nil {
			log.Error("Failed to open sighting storage", logger.Error(err))
			os.Exit(1)
		}
		defer sightings.Close()
		go sightings.Run(ctx)
		eng.SetPositionSink(sightings)
		eng.AddAlertSink(sightings)
	}

	// Workers
	feedCh := make(chan adsb.Result, 4)
	routeReqCh := make(chan []routes.Request, 1)
	routeMsgCh := make(chan routes.Message, 4)

	feedClient := adsb.NewClient(
		cfg.Feed.URL,
		time.Duration(cfg.Feed.RefreshIntervalSecs)*time.Second,
		time.Duration(cfg.Feed.TimeoutSecs)*time.Second,
		log,
	)
	go feedClient.Run(ctx, feedCh)

	if cfg.Routes.Enabled {
		routeClient := routes.NewClient(
			cfg.Routes.BaseURL,
			time.Duration(cfg.Routes.TimeoutSecs)*time.Second,
			time.Duration(cfg.Routes.RefreshIntervalSecs)*time.Second,
			log,
		)
		go routeClient.Run(ctx, routeReqCh, routeMsgCh)
	}

	// Engine loop
	loop := engine.NewLoop(eng, feedCh, routeMsgCh, routeReqCh, time.Second/time.Duration(cfg.Display.UIFPS), log)
	go loop.Run(ctx)

	// HTTP server
	router := api.NewRouter(loop, cfg, log, wsServer)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")

	// Stop workers and the engine loop first, then drain the HTTP server
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Shutdown complete")
}
