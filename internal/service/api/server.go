package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"clippilot/internal/config"
)

// APIService serves the caption HTTP API
type APIService struct {
	config *config.Config
	logger *slog.Logger

	// HTTP server
	server *http.Server
}

// New creates a new API service around handler
func New(config *config.Config, logger *slog.Logger, handler http.Handler) *APIService {
	// Headless rendering plus the resolver fallback can take well over the
	// usual 15s, so the write timeout covers the whole strategy chain.
	writeTimeout := 15*time.Second + config.FetchTimeout + config.RenderTimeout + config.YtdlpTimeout

	return &APIService{
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:              ":" + config.Port,
			Handler:           handler,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
	}
}

// Start begins serving the API. It returns nil after Stop.
func (s *APIService) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve accepts connections on listener until Stop
func (s *APIService) Serve(listener net.Listener) error {
	s.logger.Info("Starting API server",
		"addr", listener.Addr().String(),
		"write_timeout", s.server.WriteTimeout,
	)

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the API server
func (s *APIService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
