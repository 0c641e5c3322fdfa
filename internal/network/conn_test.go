package network

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peer accepts one connection on a loopback listener and returns both ends.
func peer(t *testing.T, opts ...ConnOption) (*Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
		close(accepted)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	c := NewConn("127.0.0.1", port, opts...)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { c.Disconnect() })

	remote, ok := <-accepted
	require.True(t, ok)
	t.Cleanup(func() { remote.Close() })
	return c, remote
}

func TestConn_Connect(t *testing.T) {
	c, _ := peer(t)
	assert.True(t, c.Connected())
	assert.Equal(t, "127.0.0.1", c.Addr().String())
	assert.GreaterOrEqual(t, c.Fd(), 0)

	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestConn_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := NewConn("127.0.0.1", port)
	err = c.Connect(context.Background())
	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.False(t, c.Connected())
}

func TestConn_NonBlockingReceive(t *testing.T) {
	c, remote := peer(t)
	buf := make([]byte, 16)

	_, err := c.Receive(buf)
	assert.ErrorIs(t, err, ErrDataNotReady)

	_, err = remote.Write([]byte("hello"))
	require.NoError(t, err)

	ready, err := c.WaitReadable(time.Second)
	require.NoError(t, err)
	require.True(t, ready)

	n, err := c.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	remote.Close()
	ready, err = c.WaitReadable(time.Second)
	require.NoError(t, err)
	require.True(t, ready)
	_, err = c.Receive(buf)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestConn_BlockingSendReceive(t *testing.T) {
	c, remote := peer(t, WithBlocking(true))

	go func() {
		remote.Write([]byte("pong"))
	}()

	buf := make([]byte, 4)
	n, err := c.Receive(buf)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(buf[:n]))

	n, err = c.Send([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got := make([]byte, 4)
	_, err = io.ReadFull(remote, got)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got))
}

func TestConn_AbortResets(t *testing.T) {
	c, remote := peer(t)
	require.NoError(t, c.Abort())
	assert.False(t, c.Connected())

	remote.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := remote.Read(make([]byte, 1))
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF), "abort must reset, not close: %v", err)
}

func TestConn_SendAfterDisconnect(t *testing.T) {
	c, _ := peer(t)
	require.NoError(t, c.Disconnect())

	_, err := c.Send([]byte("x"))
	var sendErr *SendError
	assert.ErrorAs(t, err, &sendErr)

	_, err = c.Receive(make([]byte, 1))
	var recvErr *ReceiveError
	assert.ErrorAs(t, err, &recvErr)
}

type runHandler struct {
	BaseHandler
	received     []byte
	timeouts     int
	disconnected bool
}

func (h *runHandler) OnReceive(c *Conn) error {
	buf := make([]byte, 64)
	n, err := c.Receive(buf)
	h.received = append(h.received, buf[:n]...)
	return err
}

func (h *runHandler) OnTimeout(*Conn) error {
	h.timeouts++
	return nil
}

func (h *runHandler) OnDisconnect(*Conn) {
	h.disconnected = true
}

func TestConn_Run(t *testing.T) {
	c, remote := peer(t, WithTimeout(20*time.Millisecond))

	go func() {
		time.Sleep(100 * time.Millisecond)
		remote.Write([]byte("data"))
		time.Sleep(50 * time.Millisecond)
		remote.Close()
	}()

	h := &runHandler{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, c.Run(ctx, h))
	assert.Equal(t, "data", string(h.received))
	assert.Positive(t, h.timeouts)
	assert.True(t, h.disconnected)
	assert.False(t, c.Connected())
}

func TestConn_RunStopsOnContext(t *testing.T) {
	c, _ := peer(t, WithTimeout(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Run(ctx, &runHandler{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, c.Connected())
}

type abortingHandler struct {
	BaseHandler
	aborted bool
}

func (h *abortingHandler) OnReceive(*Conn) error { return ErrAbort }
func (h *abortingHandler) OnAbort(*Conn)         { h.aborted = true }

func TestConn_RunRoutesAbort(t *testing.T) {
	c, remote := peer(t, WithTimeout(10*time.Millisecond))
	_, err := remote.Write([]byte{0xff})
	require.NoError(t, err)

	h := &abortingHandler{}
	require.NoError(t, c.Run(context.Background(), h))
	assert.True(t, h.aborted)
}
