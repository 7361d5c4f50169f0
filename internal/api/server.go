package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/aristath/buildplan/internal/commit"
	"github.com/aristath/buildplan/internal/config"
)

// Server is the HTTP front of the scheduling engine.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	log    zerolog.Logger
}

// NewServer wires routes, middleware, and the underlying http.Server.
func NewServer(cfg config.ServerConfig, store Store, svc *commit.Service, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))
	if cfg.RatePerSecond > 0 {
		engine.Use(rateLimit(cfg.RatePerSecond, cfg.RateBurst))
	}

	h := &handlers{store: store, svc: svc, log: log}
	h.register(engine)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully
// with a 10 second drain window.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
