// Package server exposes the HTTP surface: bet ingestion, period and result
// queries, health probes, and the WebSocket stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harborplay/roundengine/internal/server/handler"
	"github.com/harborplay/roundengine/internal/server/middleware"
	"github.com/harborplay/roundengine/internal/server/ws"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr        string
	CORSOrigins []string
	// EnableIngest registers POST /api/bets. Broadcast-only processes leave
	// it off and serve reads and the stream only.
	EnableIngest bool
}

// Handlers groups the route handlers wired by the app layer. Nil entries
// skip their routes.
type Handlers struct {
	Bet    *handler.BetHandler
	Period *handler.PeriodHandler
	Result *handler.ResultHandler
	Health *handler.HealthHandler
	Hub    *ws.Hub
}

// Server is the HTTP front. Start blocks until Shutdown or a listener error.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the router and middleware chain.
func New(cfg Config, h Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	if cfg.EnableIngest && h.Bet != nil {
		mux.HandleFunc("POST /api/bets", h.Bet.Place)
	}
	if h.Period != nil {
		mux.HandleFunc("GET /api/games", h.Period.Games)
		mux.HandleFunc("GET /api/periods/{game}/{duration}", h.Period.Current)
		mux.HandleFunc("GET /api/periods/{game}/{duration}/{timeline}", h.Period.Current)
	}
	if h.Result != nil {
		mux.HandleFunc("GET /api/results/{game}/{duration}", h.Result.Recent)
		mux.HandleFunc("GET /api/results/{game}/{duration}/{timeline}", h.Result.Recent)
		mux.HandleFunc("GET /api/results/{game}/{duration}/{timeline}/{period}", h.Result.Get)
	}
	if h.Health != nil {
		mux.HandleFunc("GET /api/health", h.Health.Health)
	}
	if h.Hub != nil {
		mux.HandleFunc("GET /ws", h.Hub.Serve)
	}

	var root http.Handler = mux
	root = middleware.CORS(cfg.CORSOrigins)(root)
	root = middleware.Logging(logger)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      root,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With(slog.String("component", "http_server")),
	}
}

// Start runs the listener until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen on %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.httpServer.Shutdown(ctx)
}
