package network

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/radarmon/radar/internal/logger"
	"github.com/radarmon/radar/internal/network/poller"
)

// acceptWait bounds Accept after the poller reported the listening socket
// ready, in case the peer went away in between.
const acceptWait = 50 * time.Millisecond

// ListenerHandler supplies the policy and hooks of a Listener. Bookkeeping
// (poller registration, the live set, closing sockets) happens in the
// Listener whatever the hooks do.
type ListenerHandler interface {
	// AcceptClient decides whether a new connection may stay.
	AcceptClient(c *Conn) bool
	OnConnect(c *Conn)
	OnDisconnect(c *Conn)
	OnReject(c *Conn)
	OnAbort(c *Conn)
	// OnReceive is called for every readable connection.
	OnReceive(c *Conn) error
	// OnTimeout is called when a wait returned nothing.
	OnTimeout()
}

// BaseListenerHandler accepts every client and ignores every event.
type BaseListenerHandler struct{}

func (BaseListenerHandler) AcceptClient(*Conn) bool { return true }
func (BaseListenerHandler) OnConnect(*Conn)         {}
func (BaseListenerHandler) OnDisconnect(*Conn)      {}
func (BaseListenerHandler) OnReject(*Conn)          {}
func (BaseListenerHandler) OnAbort(*Conn)           {}
func (BaseListenerHandler) OnReceive(*Conn) error   { return nil }
func (BaseListenerHandler) OnTimeout()              {}

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	Address string
	Port    int
	Backend poller.Backend
	// Timeout bounds each readiness wait. Defaults to DefaultTimeout.
	Timeout time.Duration
	Logger  logger.Logger
}

// Listener owns a listening socket and the connections accepted on it.
type Listener struct {
	cfg     ListenerConfig
	handler ListenerHandler
	log     logger.Logger

	ln   *net.TCPListener
	mux  *Multiplexer
	live map[*Conn]struct{}
}

// NewListener creates a listener. Call Listen to bind it.
func NewListener(cfg ListenerConfig, h ListenerHandler) *Listener {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Noop()
	}
	return &Listener{cfg: cfg, handler: h, log: cfg.Logger, live: make(map[*Conn]struct{})}
}

// Listen binds the socket and sets up the readiness backend.
func (l *Listener) Listen(ctx context.Context) error {
	target := net.JoinHostPort(l.cfg.Address, strconv.Itoa(l.cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", target)
	if err != nil {
		return &ListenError{Addr: target, Err: err}
	}
	tcpLn := ln.(*net.TCPListener)

	raw, err := tcpLn.SyscallConn()
	if err != nil {
		tcpLn.Close()
		return &ListenError{Addr: target, Err: err}
	}
	fd, err := sysFd(raw)
	if err != nil {
		tcpLn.Close()
		return &ListenError{Addr: target, Err: err}
	}

	p, err := poller.New(l.cfg.Backend)
	if err != nil {
		tcpLn.Close()
		return &ListenError{Addr: target, Err: err}
	}
	mux, err := NewMultiplexer(p, fd)
	if err != nil {
		p.Close()
		tcpLn.Close()
		return &ListenError{Addr: target, Err: err}
	}

	l.ln = tcpLn
	l.mux = mux
	l.log.Debug("Listening on %s using %s", tcpLn.Addr(), p.Backend())
	return nil
}

// Addr returns the bound address, useful when Port was 0.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Backend reports the readiness backend in use.
func (l *Listener) Backend() poller.Backend {
	if l.mux == nil {
		return poller.Auto
	}
	return l.mux.Backend()
}

// Conns returns the live connections.
func (l *Listener) Conns() []*Conn {
	out := make([]*Conn, 0, len(l.live))
	for c := range l.live {
		out = append(out, c)
	}
	return out
}

// Step runs one wait and dispatch pass.
func (l *Listener) Step() error {
	if l.mux == nil {
		return errors.New("listener is not bound")
	}
	return l.mux.Watch(l.cfg.Timeout, l)
}

// Run steps until ctx is done, then shuts down.
func (l *Listener) Run(ctx context.Context) error {
	defer l.Shutdown()
	for ctx.Err() == nil {
		if err := l.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown disconnects every live connection and closes the socket.
func (l *Listener) Shutdown() {
	for c := range l.live {
		l.disconnect(c)
	}
	if l.mux != nil {
		_ = l.mux.Close()
		l.mux = nil
	}
	if l.ln != nil {
		_ = l.ln.Close()
		l.ln = nil
	}
}

func (l *Listener) acceptOne() {
	_ = l.ln.SetDeadline(time.Now().Add(acceptWait))
	tcp, err := l.ln.AcceptTCP()
	_ = l.ln.SetDeadline(time.Time{})
	if err != nil {
		l.log.Debug("Accept failed: %v", err)
		return
	}

	c, err := newAcceptedConn(tcp, l.cfg.Timeout)
	if err != nil {
		l.log.Warn("Couldn't set up connection from %s: %v", tcp.RemoteAddr(), err)
		tcp.Close()
		return
	}

	if !l.handler.AcceptClient(c) {
		l.handler.OnReject(c)
		_ = c.Disconnect()
		return
	}

	if err := l.mux.Register(c); err != nil {
		l.log.Warn("Couldn't watch %s: %v", c, err)
		_ = c.Abort()
		return
	}
	l.live[c] = struct{}{}
	l.handler.OnConnect(c)
}

func (l *Listener) dispatch(c *Conn) {
	err := l.handler.OnReceive(c)
	if err == nil || errors.Is(err, ErrDataNotReady) {
		return
	}

	switch {
	case errors.Is(err, ErrAbort):
		l.log.Debug("Resetting %s: %v", c, err)
		l.abort(c)
	case errors.Is(err, ErrDisconnected):
		l.disconnect(c)
	default:
		l.log.Warn("%v", err)
		l.disconnect(c)
	}
}

func (l *Listener) idle() {
	l.handler.OnTimeout()
}

func (l *Listener) drop(c *Conn) {
	if l.mux != nil {
		l.mux.Unregister(c)
	}
	delete(l.live, c)
}

// Disconnect closes c and fires OnDisconnect. Safe to call from hooks.
func (l *Listener) Disconnect(c *Conn) {
	if _, ok := l.live[c]; ok {
		l.disconnect(c)
	}
}

func (l *Listener) disconnect(c *Conn) {
	l.drop(c)
	_ = c.Disconnect()
	l.handler.OnDisconnect(c)
}

func (l *Listener) abort(c *Conn) {
	l.drop(c)
	_ = c.Abort()
	l.handler.OnAbort(c)
}
