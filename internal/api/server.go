// Package api provides the HTTP REST API and WebSocket server for AutoView Core.
//
// It exposes automation registry operations, per-automation graph rendering,
// cross-automation dependency analysis, and real-time update notifications to
// user interfaces (dashboards, editor frontends).
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/autoview-core/internal/automation"
	"github.com/nerrad567/autoview-core/internal/dependency"
	"github.com/nerrad567/autoview-core/internal/infrastructure/config"
	"github.com/nerrad567/autoview-core/internal/infrastructure/database"
	"github.com/nerrad567/autoview-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/autoview-core/internal/infrastructure/logging"
	"github.com/nerrad567/autoview-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Analysis    config.AnalysisConfig
	Logger      *logging.Logger
	Registry    *automation.Registry
	Engine      *dependency.Engine
	MQTT        *mqtt.Client      // optional: definition sync and analysis publishing
	Influx      *influxdb.Client  // optional: parse/analysis performance metrics
	DB          *database.DB      // optional: pool stats for /metrics
	ExternalHub *Hub              // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for AutoView Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub,
// and owns the debounced dependency re-analysis triggered by definition
// changes. The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	analysisCfg config.AnalysisConfig
	logger      *logging.Logger
	registry    *automation.Registry
	engine      *dependency.Engine
	mqtt        *mqtt.Client
	influx      *influxdb.Client
	db          *database.DB
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()

	// rebuildMu guards the debounce timer for definition-change analysis.
	rebuildMu    sync.Mutex
	rebuildTimer *time.Timer
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registry, engine)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("automation registry is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("dependency engine is required")
	}
	// MQTT and InfluxDB are optional; definition sync and telemetry are
	// disabled when absent but the REST API still functions.

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		analysisCfg: deps.Analysis,
		logger:      deps.Logger,
		registry:    deps.Registry,
		engine:      deps.Engine,
		mqtt:        deps.MQTT,
		influx:      deps.Influx,
		db:          deps.DB,
		version:     deps.Version,
		startTime:   time.Now(),
	}

	// Use externally-provided hub if available (needed when another component
	// also requires the hub for WebSocket broadcasting).
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to MQTT
// definition topics for registry synchronisation, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	// Create WebSocket hub (unless one was injected externally)
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Subscribe to definition updates from the automation platform
	if err := s.subscribeDefinitionUpdates(); err != nil {
		s.logger.Warn("failed to subscribe to definition updates", "error", err)
	}

	// Build router
	router := s.buildRouter()

	// Create HTTP server
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Start listening in background
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
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
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	// Stop any pending debounced analysis
	s.rebuildMu.Lock()
	if s.rebuildTimer != nil {
		s.rebuildTimer.Stop()
		s.rebuildTimer = nil
	}
	s.rebuildMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
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
