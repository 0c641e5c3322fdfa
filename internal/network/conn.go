// Package network implements the TCP substrate Radar runs on: a Conn wrapping
// one socket with non-blocking send and receive, a Multiplexer that turns
// poller readiness into accept and dispatch calls, and a Listener owning the
// listening socket and its live connections.
package network

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"strconv"
	"syscall"
	"time"
)

// DefaultTimeout is the readiness wait used by Run loops.
const DefaultTimeout = 200 * time.Millisecond

// Conn is one TCP connection, either dialed or accepted.
type Conn struct {
	host     string
	addr     netip.Addr
	port     int
	blocking bool
	timeout  time.Duration

	tcp         *net.TCPConn
	raw         syscall.RawConn
	fd          int
	connectedAt time.Time

	// pending holds bytes consumed while waiting for readiness on
	// platforms without a poll call.
	pending    []byte
	pendingErr error
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithBlocking makes Send and Receive block instead of returning
// ErrDataNotReady.
func WithBlocking(b bool) ConnOption {
	return func(c *Conn) { c.blocking = b }
}

// WithTimeout sets the readiness wait used by Run and WaitWritable.
func WithTimeout(d time.Duration) ConnOption {
	return func(c *Conn) { c.timeout = d }
}

// NewConn prepares an outbound connection to host:port. It does not dial.
func NewConn(host string, port int, opts ...ConnOption) *Conn {
	c := &Conn{host: host, port: port, timeout: DefaultTimeout, fd: -1}
	if addr, err := netip.ParseAddr(host); err == nil {
		c.addr = addr.Unmap()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newAcceptedConn(tcp *net.TCPConn, timeout time.Duration) (*Conn, error) {
	ap := tcp.RemoteAddr().(*net.TCPAddr).AddrPort()
	c := &Conn{
		host:    ap.Addr().Unmap().String(),
		addr:    ap.Addr().Unmap(),
		port:    int(ap.Port()),
		timeout: timeout,
		fd:      -1,
	}
	if err := c.attach(tcp); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Conn) attach(tcp *net.TCPConn) error {
	raw, err := tcp.SyscallConn()
	if err != nil {
		return err
	}
	fd, err := sysFd(raw)
	if err != nil {
		return err
	}
	c.tcp = tcp
	c.raw = raw
	c.fd = fd
	c.connectedAt = time.Now()
	c.pending = nil
	c.pendingErr = nil
	return nil
}

// Addr returns the peer address. For outbound connections it is known once
// connected.
func (c *Conn) Addr() netip.Addr { return c.addr }

// Port returns the peer port.
func (c *Conn) Port() int { return c.port }

// String renders the peer as host:port.
func (c *Conn) String() string {
	host := c.host
	if c.addr.IsValid() {
		host = c.addr.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(c.port))
}

// Fd returns the socket descriptor, or -1 when not connected.
func (c *Conn) Fd() int { return c.fd }

// Connected reports whether the socket is open.
func (c *Conn) Connected() bool { return c.tcp != nil }

// ConnectedAt returns when the current socket was opened.
func (c *Conn) ConnectedAt() time.Time { return c.connectedAt }

// Timeout returns the readiness wait interval.
func (c *Conn) Timeout() time.Duration { return c.timeout }

// Connect dials the configured host and port.
func (c *Conn) Connect(ctx context.Context) error {
	if c.Connected() {
		return ErrAlreadyConnected
	}

	target := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return &ConnectError{Addr: target, Err: err}
	}

	tcp := nc.(*net.TCPConn)
	if err := c.attach(tcp); err != nil {
		tcp.Close()
		return &ConnectError{Addr: target, Err: err}
	}
	if ra, ok := tcp.RemoteAddr().(*net.TCPAddr); ok {
		c.addr = ra.AddrPort().Addr().Unmap()
	}
	return nil
}

func (c *Conn) detach() {
	c.tcp = nil
	c.raw = nil
	c.fd = -1
}

// Disconnect closes the socket with an orderly shutdown.
func (c *Conn) Disconnect() error {
	if !c.Connected() {
		return nil
	}
	err := c.tcp.Close()
	c.detach()
	return err
}

// Abort resets the connection (SO_LINGER 0) so the peer sees an RST and no
// half-open state lingers.
func (c *Conn) Abort() error {
	if !c.Connected() {
		return nil
	}
	_ = c.tcp.SetLinger(0)
	err := c.tcp.Close()
	c.detach()
	return err
}

// Send writes as much of b as the socket accepts. On a non-blocking socket a
// full send buffer yields ErrDataNotReady together with the bytes written.
func (c *Conn) Send(b []byte) (int, error) {
	if !c.Connected() {
		return 0, &SendError{Addr: c.String(), Err: ErrNotConnected}
	}

	if c.blocking {
		n, err := c.tcp.Write(b)
		if err != nil {
			return n, &SendError{Addr: c.String(), Err: err}
		}
		return n, nil
	}

	n, err := c.rawWrite(b)
	if n < 0 {
		n = 0
	}
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, errWouldBlock):
		return n, ErrDataNotReady
	default:
		return n, &SendError{Addr: c.String(), Err: err}
	}
}

// Receive reads up to len(buf) bytes.
func (c *Conn) Receive(buf []byte) (int, error) {
	if !c.Connected() {
		return 0, &ReceiveError{Addr: c.String(), Err: ErrNotConnected}
	}

	n, ok, err := c.takePending(buf)
	switch {
	case ok:
	case c.blocking:
		n, err = c.tcp.Read(buf)
	default:
		n, err = c.rawRead(buf)
	}
	if n < 0 {
		n = 0
	}

	switch {
	case err == nil && n == 0 && len(buf) > 0:
		return 0, ErrDisconnected
	case err == nil:
		return n, nil
	case errors.Is(err, errWouldBlock):
		return n, ErrDataNotReady
	case errors.Is(err, io.EOF):
		if n > 0 {
			return n, nil
		}
		return 0, ErrDisconnected
	default:
		return n, &ReceiveError{Addr: c.String(), Err: err}
	}
}

// WaitWritable blocks until the socket accepts more data or the timeout
// expires.
func (c *Conn) WaitWritable() error {
	if !c.Connected() {
		return &SendError{Addr: c.String(), Err: ErrNotConnected}
	}
	if err := c.waitWritable(c.timeout); err != nil {
		return &SendError{Addr: c.String(), Err: err}
	}
	return nil
}

// WaitReadable blocks until the socket has data, the peer hung up, or the
// timeout expires.
func (c *Conn) WaitReadable(timeout time.Duration) (bool, error) {
	if !c.Connected() {
		return false, &ReceiveError{Addr: c.String(), Err: ErrNotConnected}
	}
	ready, err := c.waitReadable(timeout)
	if err != nil {
		return false, &ReceiveError{Addr: c.String(), Err: err}
	}
	return ready, nil
}

func (c *Conn) takePending(buf []byte) (int, bool, error) {
	if len(c.pending) > 0 {
		n := copy(buf, c.pending)
		c.pending = c.pending[n:]
		return n, true, nil
	}
	if c.pendingErr != nil {
		err := c.pendingErr
		c.pendingErr = nil
		return 0, true, err
	}
	return 0, false, nil
}
