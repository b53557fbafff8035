// Package server exposes the screener over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"RisingStock/internal/collector"
	"RisingStock/internal/detail"
	"RisingStock/internal/metrics"
	"RisingStock/internal/model"
	"RisingStock/internal/pipeline"
	"RisingStock/internal/recorder"
)

// App is the part of pipeline.App served over HTTP.
type App interface {
	State() pipeline.State
	Run(ctx context.Context, sheet string) ([]model.ViewRow, *model.BatchReport, error)
	Watchlist(ctx context.Context, codes []string, opts collector.WatchlistOptions) ([]model.WatchlistRow, *model.BatchReport)
	Detail(tickers []string, period string) (*detail.View, error)
	RecentRuns(limit int) ([]recorder.RunSummary, error)
}

// Server wraps the Echo instance and the application it serves.
type Server struct {
	echo      *echo.Echo
	app       App
	watchlist []string
	refreshMu sync.Mutex
	log       zerolog.Logger
}

// New builds the server and registers all routes. m may be nil.
func New(app App, m *metrics.Recorder, watchlist []string, log zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		app:       app,
		watchlist: watchlist,
		log:       log.With().Str("component", "server").Logger(),
	}

	e.Use(middleware.Recover())
	e.Use(requestLogging(s.log))

	e.GET("/healthz", s.health)
	g := e.Group("/api")
	g.GET("/candidates", s.candidates)
	g.GET("/filters", s.filters)
	g.GET("/detail", s.detail)
	g.GET("/watchlist", s.watchlistRows)
	g.GET("/runs", s.runs)
	g.POST("/refresh", s.refresh)

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr and blocks until the server is shut down.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("http server listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}
