// Package server wires the HTTP routes and middleware.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ternarybob/arbor"

	"placefinder/src/common"
	"placefinder/src/handlers"
	"placefinder/src/metrics"
)

// Server manages the HTTP server and routes
type Server struct {
	config  *common.Config
	api     *handlers.API
	metrics *metrics.Metrics
	logger  arbor.ILogger
	router  *http.ServeMux
	server  *http.Server
}

func New(config *common.Config, api *handlers.API, m *metrics.Metrics, logger arbor.ILogger) *Server {
	s := &Server{
		config:  config,
		api:     api,
		metrics: m,
		logger:  logger,
	}
	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
}

// Handler is the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withMiddleware(s.router)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	api := s.api

	mux.HandleFunc("GET /api/search", api.HandleSearch)
	mux.HandleFunc("GET /api/static-map", api.HandleStaticMap)

	mux.HandleFunc("GET /api/favorites", api.HandleFavorites)
	mux.HandleFunc("POST /api/favorites", api.HandleAddFavorite)
	mux.HandleFunc("GET /api/favorites/places", api.HandleFavoritePlaces)

	mux.HandleFunc("GET /api/me/places", api.HandleOwnedPlaces)
	mux.HandleFunc("GET /api/me/reviews", api.HandleMyReviews)

	mux.HandleFunc("GET /api/places/{id}/reviews", api.HandlePlaceReviews)
	mux.HandleFunc("POST /api/places/{id}/reviews", api.HandleCreateReview)
	mux.HandleFunc("GET /api/places/{id}/menus", api.HandleMenus)

	mux.HandleFunc("GET /api/recommend", api.HandleRecommend)
	mux.HandleFunc("POST /api/get_token", api.HandleGetToken)
	mux.HandleFunc("POST /api/uploads", api.HandleUpload)

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.server.Addr).Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server failed")
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server shutdown failed")
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
