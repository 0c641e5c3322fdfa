package network

import (
	"context"
	"errors"
)

// Handler receives the events of a single connection's Run loop.
type Handler interface {
	OnConnect(c *Conn)
	OnDisconnect(c *Conn)
	OnAbort(c *Conn)
	// OnReceive is called when the socket is readable.
	OnReceive(c *Conn) error
	// OnTimeout is called when nothing arrived within the wait interval.
	OnTimeout(c *Conn) error
	OnReceiveError(c *Conn, err error)
	OnSendError(c *Conn, err error)
}

// BaseHandler provides the default hooks: no-ops, and disconnect on send or
// receive errors. Embed it and override what you need.
type BaseHandler struct{}

func (BaseHandler) OnConnect(*Conn)               {}
func (BaseHandler) OnDisconnect(*Conn)            {}
func (BaseHandler) OnAbort(*Conn)                 {}
func (BaseHandler) OnReceive(*Conn) error         { return nil }
func (BaseHandler) OnTimeout(*Conn) error         { return nil }
func (BaseHandler) OnReceiveError(c *Conn, _ error) { _ = c.Disconnect() }
func (BaseHandler) OnSendError(c *Conn, _ error)    { _ = c.Disconnect() }

// Run drives one connection until it is closed or ctx is done. Each pass
// waits up to the connection timeout for readability, then calls OnReceive,
// or OnTimeout when nothing arrived. Run does not close the connection when
// ctx ends.
func (c *Conn) Run(ctx context.Context, h Handler) error {
	for c.Connected() {
		if err := ctx.Err(); err != nil {
			return err
		}

		ready, err := c.WaitReadable(c.timeout)
		switch {
		case err != nil:
			c.route(h, err)
		case ready:
			c.route(h, h.OnReceive(c))
		default:
			c.route(h, h.OnTimeout(c))
		}
	}
	return nil
}

func (c *Conn) route(h Handler, err error) {
	if err == nil || errors.Is(err, ErrDataNotReady) {
		return
	}

	var sendErr *SendError
	switch {
	case errors.Is(err, ErrAbort):
		_ = c.Abort()
		h.OnAbort(c)
		return
	case errors.Is(err, ErrDisconnected):
		_ = c.Disconnect()
		h.OnDisconnect(c)
		return
	case errors.As(err, &sendErr):
		h.OnSendError(c, err)
	default:
		h.OnReceiveError(c, err)
	}

	if !c.Connected() {
		h.OnDisconnect(c)
	}
}
