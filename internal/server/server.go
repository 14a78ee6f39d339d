package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/flatsim/internal/core/observability/log"
	"github.com/zeusync/flatsim/internal/core/systems"
	"github.com/zeusync/flatsim/internal/core/systems/physics"
)

// Server steps a physics world at a fixed rate and streams snapshots of it to
// WebSocket clients.
type Server struct {
	config Config
	logger log.Log

	world   *physics.World
	manager *systems.Manager
	hub     *hub

	httpServer *http.Server
	listener   net.Listener

	running int32 // atomic bool
	closed  int32 // atomic bool

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Config holds server configuration
type Config struct {
	ListenAddr string
	MaxClients int

	// TickInterval is both the wall-clock period of the loop and the simulated
	// time passed to every Step.
	TickInterval time.Duration
	// BroadcastEvery sends a snapshot every n ticks.
	BroadcastEvery int

	ClientBufferSize int
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:       "127.0.0.1:8080",
		MaxClients:       256,
		TickInterval:     time.Second / 60,
		BroadcastEvery:   2,
		ClientBufferSize: 16,
		WriteTimeout:     5 * time.Second,
		ShutdownTimeout:  5 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("%w: empty listen address", ErrInvalidConfig)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval %s", ErrInvalidConfig, c.TickInterval)
	case c.BroadcastEvery < 1:
		return fmt.Errorf("%w: broadcast every %d ticks", ErrInvalidConfig, c.BroadcastEvery)
	case c.MaxClients < 1:
		return fmt.Errorf("%w: max clients %d", ErrInvalidConfig, c.MaxClients)
	case c.ClientBufferSize < 1:
		return fmt.Errorf("%w: client buffer size %d", ErrInvalidConfig, c.ClientBufferSize)
	}
	return nil
}

// Health is the body of the /healthz response.
type Health struct {
	Status   string `json:"status"`
	Steps    uint64 `json:"steps"`
	Bodies   int    `json:"bodies"`
	Clients  int    `json:"clients"`
	Checksum uint64 `json:"checksum"`
}

// Stats contains server statistics
type Stats struct {
	Clients   int
	Running   bool
	Step      physics.StepStats
	Broadcast uint64
	Dropped   uint64
}

// NewServer creates a server around world. The world is driven by a systems
// manager, so further systems can be registered through Manager before Start.
func NewServer(config Config, world *physics.World, logger log.Log) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if world == nil {
		return nil, fmt.Errorf("%w: nil world", ErrInvalidConfig)
	}
	if logger == nil {
		logger = log.Provide()
	}
	logger = logger.With(log.String("component", "server"))

	manager := systems.NewManager(logger)
	if err := manager.Register(physics.NewSystem(world)); err != nil {
		return nil, err
	}

	s := &Server{
		config:  config,
		logger:  logger,
		world:   world,
		manager: manager,
		hub:     newHub(config, logger),
	}

	s.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Duration("tick", config.TickInterval),
		log.Int("bodies", world.BodyCount()))

	return s, nil
}

func (s *Server) World() *physics.World     { return s.world }
func (s *Server) Manager() *systems.Manager { return s.manager }

// Addr is the bound listen address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listener and runs the HTTP server and the tick loop in the
// background. It returns once the server accepts connections.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	s.logger.Info("Starting server")

	s.hub.open()
	if err := s.manager.InitializeAll(ctx); err != nil {
		atomic.StoreInt32(&s.running, 0)
		return err
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %w", ErrListenerFailed, err)
	}

	httpServer := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)

	s.mu.Lock()
	s.httpServer = httpServer
	s.listener = listener
	s.cancel = cancel
	s.group = group
	s.mu.Unlock()

	group.Go(func() error {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return s.tickLoop(groupCtx)
	})

	s.logger.Info("Server listening", log.Stringer("addr", listener.Addr()))
	return nil
}

// Wait blocks until the background workers exit and returns the first error
// one of them failed with.
func (s *Server) Wait() error {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()
	if group == nil {
		return ErrServerNotRunning
	}
	return group.Wait()
}

// Stop stops the tick loop, closes every client and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}

	s.logger.Info("Stopping server")

	s.mu.Lock()
	cancel, group, httpServer := s.cancel, s.group, s.httpServer
	s.mu.Unlock()

	cancel()
	s.hub.closeAll()
	shutdownErr := httpServer.Shutdown(ctx)
	runErr := group.Wait()
	if err := s.manager.ShutdownAll(ctx); err != nil {
		s.logger.Warn("System shutdown failed", log.Error(err))
	}

	s.logger.Info("Server stopped", log.Uint64("steps", s.world.Stats().Steps))
	return errors.Join(shutdownErr, runErr)
}

// Close stops the server if needed. A closed server cannot be started again.
func (s *Server) Close() error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}
	if atomic.LoadInt32(&s.running) == 1 {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(ctx)
	}
	return nil
}

func (s *Server) GetStats() Stats {
	broadcast, dropped := s.hub.counters()
	return Stats{
		Clients:   s.hub.count(),
		Running:   atomic.LoadInt32(&s.running) == 1,
		Step:      s.world.Stats(),
		Broadcast: broadcast,
		Dropped:   dropped,
	}
}

func (s *Server) Health() Health {
	stats := s.world.Stats()
	status := "stopped"
	if atomic.LoadInt32(&s.running) == 1 {
		status = "ok"
	}
	return Health{
		Status:   status,
		Steps:    stats.Steps,
		Bodies:   s.world.BodyCount(),
		Clients:  s.hub.count(),
		Checksum: s.world.Checksum(),
	}
}

func (s *Server) tickLoop(ctx context.Context) error {
	s.logger.Debug("Tick loop started")
	defer s.logger.Debug("Tick loop stopped")

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	dt := s.config.TickInterval.Seconds()
	for tick := 1; ; tick++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := s.manager.Update(dt); err != nil {
			s.logger.Warn("System update failed", log.Error(err))
		}
		if tick%s.config.BroadcastEvery == 0 && s.hub.count() > 0 {
			s.broadcastSnapshot()
		}
	}
}

func (s *Server) broadcastSnapshot() {
	frame, err := json.Marshal(s.world.Snapshot())
	if err != nil {
		s.logger.Error("Failed to encode snapshot", log.Error(err))
		return
	}
	s.hub.broadcast(frame)
}
