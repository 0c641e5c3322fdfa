//go:build !unix

package network

import (
	"errors"
	"os"
	"syscall"
	"time"
)

// readProbe bounds the read used to emulate a non-blocking receive.
const readProbe = time.Millisecond

func sysFd(raw syscall.RawConn) (int, error) {
	fd := -1
	err := raw.Control(func(s uintptr) { fd = int(s) })
	return fd, err
}

func (c *Conn) rawRead(buf []byte) (int, error) {
	if n, ok, err := c.takePending(buf); ok {
		return n, err
	}

	_ = c.tcp.SetReadDeadline(time.Now().Add(readProbe))
	n, err := c.tcp.Read(buf)
	_ = c.tcp.SetReadDeadline(time.Time{})
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if n > 0 {
			return n, nil
		}
		return 0, errWouldBlock
	}
	return n, err
}

func (c *Conn) rawWrite(b []byte) (int, error) {
	return c.tcp.Write(b)
}

// waitReadable reads one byte under a deadline and keeps it for the next
// receive.
func (c *Conn) waitReadable(timeout time.Duration) (bool, error) {
	if len(c.pending) > 0 || c.pendingErr != nil {
		return true, nil
	}

	_ = c.tcp.SetReadDeadline(time.Now().Add(timeout))
	one := make([]byte, 1)
	n, err := c.tcp.Read(one)
	_ = c.tcp.SetReadDeadline(time.Time{})

	if n > 0 {
		c.pending = append(c.pending, one[:n]...)
		return true, nil
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return false, nil
	}
	if err != nil {
		c.pendingErr = err
		return true, nil
	}
	return false, nil
}

func (c *Conn) waitWritable(time.Duration) error {
	return nil
}
