package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-auth/internal/audit"
	"github.com/nerrad567/gray-logic-auth/internal/auth"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every component the health endpoint probes.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EventStats reports event bus delivery counters.
type EventStats interface {
	Dropped() uint64
	Failed() uint64
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Service    *auth.Service
	Authorizer *auth.Authorizer
	AuditRepo  audit.Repository // optional: enables GET /audit
	DB         *sql.DB          // optional: pool stats in /metrics

	// HealthChecks are probed by GET /health, keyed by component name.
	HealthChecks map[string]HealthChecker

	// EventStats is optional; when set /metrics reports MQTT delivery counters.
	EventStats EventStats

	Version string
}

// Server is the HTTP API server for the auth service.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	logger       *logging.Logger
	service      *auth.Service
	authorizer   *auth.Authorizer
	auditRepo    audit.Repository
	db           *sql.DB
	healthChecks map[string]HealthChecker
	eventStats   EventStats
	version      string
	startTime    time.Time
	server       *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Service == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.Authorizer == nil {
		return nil, fmt.Errorf("authorizer is required")
	}

	return &Server{
		cfg:          deps.Config,
		logger:       deps.Logger,
		service:      deps.Service,
		authorizer:   deps.Authorizer,
		auditRepo:    deps.AuditRepo,
		db:           deps.DB,
		healthChecks: deps.HealthChecks,
		eventStats:   deps.EventStats,
		version:      deps.Version,
		startTime:    time.Now(),
	}, nil
}

// Handler returns the fully wired router. Useful for embedding the API
// in another server or for tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
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
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
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

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
