// Package api provides the HTTP REST API and WebSocket event relay for
// Wirehome Core.
//
// It translates external requests into registry and bus operations: CRUD
// on components and component groups, global variables, notifications,
// the long-poll wait_for endpoint, and the system status surface.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
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
	"net"
	"net/http"
	"time"

	"github.com/noriffik/wirehome-core/internal/bus"
	"github.com/noriffik/wirehome-core/internal/component"
	"github.com/noriffik/wirehome-core/internal/componentgroup"
	"github.com/noriffik/wirehome-core/internal/globalvar"
	"github.com/noriffik/wirehome-core/internal/infrastructure/config"
	"github.com/noriffik/wirehome-core/internal/infrastructure/logging"
	"github.com/noriffik/wirehome-core/internal/notification"
	"github.com/noriffik/wirehome-core/internal/system"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	WS            config.WebSocketConfig
	Logger        *logging.Logger
	Bus           *bus.MessageBus
	Components    *component.Registry
	Groups        *componentgroup.Registry
	GlobalVars    *globalvar.Service
	Notifications *notification.Store // optional
	Status        *system.StatusService
	WaitTimeout   time.Duration // default wait_for timeout
	RequestCount  interface{ Increment() } // optional api.requests counter
	Version       string
}

// Server is the HTTP API server for Wirehome Core.
type Server struct {
	cfg           config.APIConfig
	wsCfg         config.WebSocketConfig
	logger        *logging.Logger
	bus           *bus.MessageBus
	components    *component.Registry
	groups        *componentgroup.Registry
	globalVars    *globalvar.Service
	notifications *notification.Store
	status        *system.StatusService
	waitTimeout   time.Duration
	requestCount  interface{ Increment() }
	version       string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("message bus is required")
	}
	if deps.Components == nil {
		return nil, fmt.Errorf("component registry is required")
	}
	if deps.Groups == nil {
		return nil, fmt.Errorf("component group registry is required")
	}
	if deps.WaitTimeout <= 0 {
		deps.WaitTimeout = 5 * time.Second
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger,
		bus:           deps.Bus,
		components:    deps.Components,
		groups:        deps.Groups,
		globalVars:    deps.GlobalVars,
		notifications: deps.Notifications,
		status:        deps.Status,
		waitTimeout:   deps.WaitTimeout,
		requestCount:  deps.RequestCount,
		version:       deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router, starts the WebSocket hub with its bus
// subscription, and launches the listener in a background goroutine.
// Stop with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	s.hub.AttachBus(s.bus)
	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
		// Request contexts derive from the hub context, so cancelling it
		// releases pending long-polls.
		BaseContext: func(net.Listener) context.Context { return srvCtx },
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests (long-polls return their queued messages when
// the hub context is cancelled).
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
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
