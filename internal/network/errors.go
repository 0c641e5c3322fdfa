package network

import (
	"errors"
	"fmt"
)

var (
	// ErrDataNotReady means a non-blocking socket had nothing to read or no
	// room to write. Callers move on to their next tick.
	ErrDataNotReady = errors.New("data not ready")

	// ErrDisconnected is returned when the peer closed the connection.
	ErrDisconnected = errors.New("peer disconnected")

	// ErrAbort asks the owner to reset the connection instead of closing it.
	ErrAbort = errors.New("connection aborted")

	ErrAlreadyConnected = errors.New("already connected")
	ErrNotConnected     = errors.New("not connected")

	errWouldBlock = errors.New("operation would block")
)

// ConnectError wraps a failed dial.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("couldn't connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ReceiveError wraps a failed read.
type ReceiveError struct {
	Addr string
	Err  error
}

func (e *ReceiveError) Error() string {
	return fmt.Sprintf("error receiving from %s: %v", e.Addr, e.Err)
}

func (e *ReceiveError) Unwrap() error { return e.Err }

// SendError wraps a failed write.
type SendError struct {
	Addr string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("error sending to %s: %v", e.Addr, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ListenError wraps a failed bind. It ends the process.
type ListenError struct {
	Addr string
	Err  error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("couldn't listen on %s: %v", e.Addr, e.Err)
}

func (e *ListenError) Unwrap() error { return e.Err }
