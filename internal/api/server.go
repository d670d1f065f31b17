// Package api provides the local HTTP REST API.
//
// It serves the mirrored hub state (devices, groups, home), the stored
// button occurrence history, and runtime metrics for monitoring. The API
// is read-only: control flows through the hub client, not through HTTP.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hmiplocal/hculink/internal/history"
	"github.com/hmiplocal/hculink/internal/infrastructure/config"
	"github.com/hmiplocal/hculink/internal/infrastructure/logging"
	"github.com/hmiplocal/hculink/internal/mirror"
	"github.com/hmiplocal/hculink/internal/supervisor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Mirror     *mirror.Mirror
	History    *history.Repository // optional
	Supervisor *supervisor.Supervisor
	Version    string
}

// Server is the read-only HTTP API server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	mirror  *mirror.Mirror
	history *history.Repository
	sup     *supervisor.Supervisor
	version string
	server  *http.Server
}

// New creates an API server. It is not started until Start is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, mirror, supervisor)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Mirror == nil {
		return nil, fmt.Errorf("mirror is required")
	}
	if deps.Supervisor == nil {
		return nil, fmt.Errorf("supervisor is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		mirror:  deps.Mirror,
		history: deps.History,
		sup:     deps.Supervisor,
		version: deps.Version,
	}, nil
}

// Start launches the HTTP listener in a background goroutine. Stop it
// with Close.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts the server down, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
