package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/manoharb30/insight-lookinsight/pkg/config"
	"github.com/manoharb30/insight-lookinsight/pkg/logger"
)

const (
	readTimeout = 15 * time.Second
	// Write timeout covers buffered JSON responses only; websocket
	// connections are hijacked and manage their own deadlines.
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server is the HTTP server hosting the analysis and risk API.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
	config     *config.Config
}

func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		logger: log,
		config: cfg,
	}
}

// Start serves until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"port": s.config.Port,
		"env":  s.config.Env,
	}).Info("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
