//go:build unix

package network

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func sysFd(raw syscall.RawConn) (int, error) {
	fd := -1
	err := raw.Control(func(s uintptr) { fd = int(s) })
	return fd, err
}

func mapErrno(err error) error {
	switch err {
	case unix.EAGAIN, unix.EINTR:
		return errWouldBlock
	}
	return err
}

// rawRead performs one read(2) without parking on the runtime poller. Go
// keeps the socket in O_NONBLOCK mode, so an empty buffer surfaces as EAGAIN.
func (c *Conn) rawRead(buf []byte) (int, error) {
	var n int
	var opErr error
	err := c.raw.Read(func(fd uintptr) bool {
		n, opErr = unix.Read(int(fd), buf)
		return true
	})
	if err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, mapErrno(opErr)
	}
	return n, nil
}

func (c *Conn) rawWrite(b []byte) (int, error) {
	var n int
	var opErr error
	err := c.raw.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), b)
		return true
	})
	if err != nil {
		return 0, err
	}
	if opErr != nil {
		return 0, mapErrno(opErr)
	}
	return n, nil
}

func (c *Conn) waitFor(events int16, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: events}}
	ms := int(timeout / time.Millisecond)
	if timeout < 0 {
		ms = -1
	}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	return n > 0, nil
}

func (c *Conn) waitReadable(timeout time.Duration) (bool, error) {
	return c.waitFor(unix.POLLIN, timeout)
}

func (c *Conn) waitWritable(timeout time.Duration) error {
	_, err := c.waitFor(unix.POLLOUT, timeout)
	return err
}
