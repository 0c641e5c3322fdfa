// Package server runs the Radar server process: the client listener and its
// registry, the periodic poller, the plugin fan-out and the optional console
// listener.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/radarmon/radar/internal/console"
	"github.com/radarmon/radar/internal/errors"
	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/network"
	"github.com/radarmon/radar/internal/plugin"
	"github.com/radarmon/radar/internal/protocol"
	"github.com/radarmon/radar/internal/registry"
)

type command struct {
	fn   func(r *registry.Registry)
	done chan struct{}
}

// Server owns the registry. Only the network goroutine touches it; every
// other goroutine goes through Do.
type Server struct {
	cfg      Config
	reg      *registry.Registry
	handler  *handler
	listener *network.Listener
	console  *console.Server
	manager  *plugin.Manager
	log      logger.Logger

	commands chan command
	fanout   chan registry.PendingReply
	stopped  chan struct{}
	once     sync.Once
}

// New validates cfg and wires the server. Call Listen then Run, or Run
// alone.
func New(cfg Config, monitors []*registry.Monitor, plugins []plugin.Plugin, log logger.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Noop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	s := &Server{
		cfg:      cfg,
		reg:      registry.New(monitors, log),
		log:      log,
		commands: make(chan command, 16),
		fanout:   make(chan registry.PendingReply, cfg.QueueSize),
		stopped:  make(chan struct{}),
	}
	s.handler = newHandler(s.reg, s.fanout, log)
	s.listener = network.NewListener(network.ListenerConfig{
		Address: cfg.Address,
		Port:    cfg.Port,
		Backend: cfg.Backend,
		Logger:  log,
	}, s.handler)
	s.manager = plugin.NewManager(s.reg.Store(), plugins, log)
	if cfg.Console != nil {
		s.console = console.NewServer(*cfg.Console, s, logger.With(log, "Console."))
	}
	return s, nil
}

// Listen binds the client listener and, when configured, the console.
func (s *Server) Listen(ctx context.Context) error {
	if err := s.listener.Listen(ctx); err != nil {
		return errors.WrapWithCode(err, errors.ErrNetwork,
			"Error - Couldn't start Radar server",
			"Check that listen.address is local and listen.port is free")
	}
	s.log.Info("Radar server listening on %s using %s", s.listener.Addr(), s.listener.Backend())

	if s.console != nil {
		if err := s.console.Listen(ctx); err != nil {
			s.listener.Shutdown()
			return errors.WrapWithCode(err, errors.ErrNetwork,
				"Error - Couldn't start Radar console",
				"Check that console.address is local and console.port is free")
		}
		s.log.Info("Radar console listening on %s", s.console.Addr())
	}
	return nil
}

// Addr returns the client listener address once bound.
func (s *Server) Addr() string {
	if a := s.listener.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// ConsoleAddr returns the console address, or "" without a console.
func (s *Server) ConsoleAddr() string {
	if s.console == nil {
		return ""
	}
	return s.console.Addr()
}

// Do runs fn on the network goroutine and waits for it.
func (s *Server) Do(ctx context.Context, fn func(r *registry.Registry)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return errStopped()
	}

	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		select {
		case <-cmd.done:
			return nil
		default:
			return errStopped()
		}
	}
}

func errStopped() error {
	return errors.New(errors.ErrNetwork, "Error - Radar server is shutting down.", "")
}

// Run serves until ctx is done. The poller, plugins and console start only
// once the listeners are bound.
func (s *Server) Run(ctx context.Context) error {
	if s.listener.Addr() == nil {
		if err := s.Listen(ctx); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.manager.Start()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.manager.Run(ctx, s.fanout)
	}()
	go func() {
		defer wg.Done()
		s.poll(ctx)
	}()
	if s.console != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.console.Run(ctx); err != nil {
				s.log.Error("Error - Console stopped. Details : %v", err)
			}
		}()
	}

	err := s.loop(ctx)
	cancel()
	wg.Wait()
	s.log.Info("Radar server stopped")
	return err
}

func (s *Server) loop(ctx context.Context) error {
	defer s.once.Do(func() { close(s.stopped) })
	defer s.listener.Shutdown()

	for ctx.Err() == nil {
		if err := s.listener.Step(); err != nil {
			return err
		}
		s.drain()
	}
	return nil
}

func (s *Server) drain() {
	for {
		select {
		case cmd := <-s.commands:
			cmd.fn(s.reg)
			close(cmd.done)
		default:
			return
		}
	}
}

func (s *Server) poll(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := s.Do(ctx, func(r *registry.Registry) { r.Poll(protocol.TypeCheck) }); err != nil {
			return
		}
		s.log.Info("Next scheduled poll at : %s.", time.Now().Add(s.cfg.PollingTime).Format("15:04:05"))
		timer.Reset(s.cfg.PollingTime)
	}
}
