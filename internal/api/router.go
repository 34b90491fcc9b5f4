package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/j4v3l/skydeck/internal/config"
	"github.com/j4v3l/skydeck/internal/engine"
	"github.com/j4v3l/skydeck/internal/websocket"
	"github.com/j4v3l/skydeck/pkg/logger"
)

// Router wires the API handlers into an HTTP mux.
type Router struct {
	handler *Handler
	logger  *logger.Logger
}

// NewRouter creates the API router over the engine loop.
func NewRouter(loop *engine.Loop, cfg *config.Config, log *logger.Logger, wsServer *websocket.Server) *Router {
	return &Router{
		handler: NewHandler(loop, cfg, log, wsServer),
		logger:  log.Named("api-router"),
	}
}

// Routes returns the HTTP handler with all routes registered.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	h := rt.handler

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/snapshot", h.GetSnapshot)
		r.Get("/aircraft", h.GetAllAircraft)
		r.Get("/aircraft/{key}", h.GetAircraftByKey)
		r.Get("/aircraft/{key}/trail", h.GetAircraftTrail)
		r.Get("/rates", h.GetRates)
		r.Get("/routes", h.GetRoutes)
		r.Get("/notifications", h.GetNotifications)
		r.Get("/status", h.GetStatus)
		r.Get("/config", h.GetConfig)
		r.Post("/favorites/{hex}", h.ToggleFavorite)
	})

	r.Get("/ws", h.wsServer.HandleConnection)

	return r
}
