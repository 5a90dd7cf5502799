// Package api exposes the HTTP control surface: health, status,
// manual sync, Trakt device authorization and playback interception.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/watchnext/watchnext/internal/acquisition"
	"github.com/watchnext/watchnext/internal/cache"
	"github.com/watchnext/watchnext/internal/config"
	"github.com/watchnext/watchnext/internal/scheduler"
	syncsvc "github.com/watchnext/watchnext/internal/sync"
	"github.com/watchnext/watchnext/internal/trakt"
)

// Server handles HTTP requests for the watchnext API.
type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger zerolog.Logger

	syncService *syncsvc.Service
	sched       *scheduler.Scheduler
	trakt       *trakt.Client
	items       *cache.ItemCache
	progress    *cache.SeriesProgressCache
	ended       *cache.EndedSeriesCache
	backend     acquisition.Backend
	classifier  acquisition.Classifier
}

// NewServer creates the API server.
func NewServer(
	cfg *config.Config,
	syncService *syncsvc.Service,
	sched *scheduler.Scheduler,
	traktClient *trakt.Client,
	items *cache.ItemCache,
	progress *cache.SeriesProgressCache,
	ended *cache.EndedSeriesCache,
	backend acquisition.Backend,
	classifier acquisition.Classifier,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:        e,
		cfg:         cfg,
		logger:      logger.With().Str("component", "api").Logger(),
		syncService: syncService,
		sched:       sched,
		trakt:       traktClient,
		items:       items,
		progress:    progress,
		ended:       ended,
		backend:     backend,
		classifier:  classifier,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api", s.requireAPIKey)
	api.GET("/status", s.status)
	api.POST("/sync", s.triggerSync)
	api.POST("/auth/trakt/:userID", s.startAuth)
	api.GET("/auth/trakt/:userID", s.authStatus)
	api.DELETE("/auth/trakt/:userID", s.cancelAuth)
	api.POST("/play/:userID/:key", s.play)
}

// requireAPIKey rejects requests without the configured key. An empty
// configured key leaves the API open (single-host deployments).
func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := s.cfg.Server.APIKey
		if key == "" {
			return next(c)
		}
		got := c.Request().Header.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
		}
		return next(c)
	}
}

// Start begins serving on the given address. It blocks until the
// server stops.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
