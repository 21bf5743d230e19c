// Package server wires the REST handlers and the websocket hub into one
// HTTP server.
package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"casino-engine/internal/middleware"
	"casino-engine/internal/server/handlers"
	"casino-engine/internal/server/websocket"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Config holds the listener settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// Release switches gin to release mode.
	Release bool
}

type Server struct {
	config  Config
	http    *http.Server
	limiter *middleware.RateLimiter
	logger  *log.Logger
}

// New builds the router. The hub is mounted at /ws.
func New(config Config, h *handlers.Handler, hub *websocket.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default().WithPrefix("http")
	}
	if config.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.New(corsConfig(config.AllowedOrigins)))
	r.Use(limiter.Middleware())

	h.Register(r)
	r.GET("/ws", hub.ServeWS)

	return &Server{
		config: config,
		http: &http.Server{
			Addr:              config.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		limiter: limiter,
		logger:  logger,
	}
}

func corsConfig(origins []string) cors.Config {
	allowAll := len(origins) == 0 || slices.Contains(origins, "*")
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowAll || slices.Contains(origins, origin)
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	defer s.limiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
