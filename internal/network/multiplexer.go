package network

import (
	"time"

	"github.com/radarmon/radar/internal/network/poller"
)

// dispatcher is what the Multiplexer drives after each wait.
type dispatcher interface {
	acceptOne()
	dispatch(c *Conn)
	idle()
}

// Multiplexer maps poller readiness back to connections. The accept and
// dispatch logic is the same for every backend.
type Multiplexer struct {
	poller   poller.Poller
	listenFd int
	watched  map[int]*Conn
}

// NewMultiplexer watches listenFd plus any registered connections.
func NewMultiplexer(p poller.Poller, listenFd int) (*Multiplexer, error) {
	if err := p.Register(listenFd); err != nil {
		return nil, err
	}
	return &Multiplexer{poller: p, listenFd: listenFd, watched: make(map[int]*Conn)}, nil
}

// Backend reports the poller in use.
func (m *Multiplexer) Backend() poller.Backend {
	return m.poller.Backend()
}

// Register starts watching c.
func (m *Multiplexer) Register(c *Conn) error {
	if err := m.poller.Register(c.Fd()); err != nil {
		return err
	}
	m.watched[c.Fd()] = c
	return nil
}

// Unregister stops watching c. It must run before c is closed.
func (m *Multiplexer) Unregister(c *Conn) {
	fd := c.Fd()
	if _, ok := m.watched[fd]; !ok {
		return
	}
	_ = m.poller.Unregister(fd)
	delete(m.watched, fd)
}

// Len returns the number of watched connections.
func (m *Multiplexer) Len() int {
	return len(m.watched)
}

// Watch waits once. A ready listening socket yields exactly one accept; every
// ready connection is dispatched; an empty wait fires the idle hook.
func (m *Multiplexer) Watch(timeout time.Duration, d dispatcher) error {
	ready, err := m.poller.Wait(timeout)
	if err != nil {
		return err
	}
	if len(ready) == 0 {
		d.idle()
		return nil
	}

	var conns []*Conn
	acceptReady := false
	for _, fd := range ready {
		if fd == m.listenFd {
			acceptReady = true
			continue
		}
		if c, ok := m.watched[fd]; ok {
			conns = append(conns, c)
		}
	}

	if acceptReady {
		d.acceptOne()
	}
	for _, c := range conns {
		// An earlier dispatch may have dropped this connection.
		if m.watched[c.Fd()] == c {
			d.dispatch(c)
		}
	}
	return nil
}

// Close releases the poller.
func (m *Multiplexer) Close() error {
	m.watched = map[int]*Conn{}
	return m.poller.Close()
}
