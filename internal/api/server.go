package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/greenrack/greenrack-core/internal/flow"
	"github.com/greenrack/greenrack-core/internal/infrastructure/config"
	"github.com/greenrack/greenrack-core/internal/infrastructure/logging"
	"github.com/greenrack/greenrack-core/internal/lighting"
	"github.com/greenrack/greenrack-core/internal/task"
	"github.com/greenrack/greenrack-core/internal/tray"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// FlowService is the supervisor surface the API drives. Satisfied by
// *flow.Supervisor.
type FlowService interface {
	StartInbound(ctx context.Context, stationID, floor, slot int, meta flow.Metadata) (string, error)
	StartOutbound(ctx context.Context, stationID, floor, slot int) (string, error)
	Confirm(ctx context.Context, stationID int) error
	Dispose(ctx context.Context, stationID int) error
	LiftCommand(stationID int, action flow.LiftAction, floor int) error
	Status(stationID int) (flow.Status, error)
	StatusAll() []flow.Status
}

// Dimmer issues lighting bus commands. Satisfied by *lighting.Controller.
type Dimmer interface {
	Dim(floor int, deviceType lighting.DeviceType, dir lighting.Direction, amount uint16) error
}

// WaterService issues irrigation point commands. Satisfied by
// *water.Controller.
type WaterService interface {
	OpenValve(stationID int) error
	CloseValve(stationID int) error
	RunPump(stationID int, d time.Duration) error
	StopPump(stationID int) error
	Dose(stationID int, ml float64) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Warehouse config.WarehouseConfig
	Logger    *logging.Logger
	Flow      FlowService
	Tasks     task.Repository
	Trays     tray.Repository
	Lighting  Dimmer       // optional
	Water     WaterService // optional

	// ExternalHub, when set, is used instead of creating a new hub.
	// Needed when the flow supervisor also broadcasts through it.
	ExternalHub *Hub
	Version     string
}

// Server is the HTTP API server for Greenrack Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	warehouse config.WarehouseConfig
	logger    *logging.Logger
	flow      FlowService
	tasks     task.Repository
	trays     tray.Repository
	lighting  Dimmer
	water     WaterService
	version   string

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Flow == nil {
		return nil, fmt.Errorf("flow service is required")
	}
	if deps.Tasks == nil || deps.Trays == nil {
		return nil, fmt.Errorf("task and tray repositories are required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		warehouse: deps.Warehouse,
		logger:    deps.Logger,
		flow:      deps.Flow,
		tasks:     deps.Tasks,
		trays:     deps.Trays,
		lighting:  deps.Lighting,
		water:     deps.Water,
		version:   deps.Version,
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, creating it on first use.
// Exposed so the flow supervisor can be wired to broadcast through it
// before the server starts.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server is stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
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

// HealthCheck verifies the API server is running and responsive.
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
