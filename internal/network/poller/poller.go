// Package poller wraps the operating system readiness-notification calls
// behind one interface. Each backend watches a set of file descriptors for
// readability and reports which ones are ready within a bounded wait.
//
// The backend is chosen once at startup from a per-OS preference list:
//
//	linux:                       epoll, poll, select
//	darwin and the BSDs:         kqueue, poll, select
//	other unix:                  poll, select
//	everything else:             select (unsupported, see below)
//
// IOCP is a reserved backend name with no implementation; on non-unix
// builds New returns ErrUnsupportedPlatform.
package poller

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Backend names a readiness mechanism.
type Backend string

const (
	// Auto picks the best backend for the running OS.
	Auto   Backend = ""
	Epoll  Backend = "epoll"
	Kqueue Backend = "kqueue"
	Poll   Backend = "poll"
	Select Backend = "select"
	// IOCP is reserved.
	IOCP Backend = "iocp"
)

var (
	ErrUnsupportedPlatform = errors.New("no readiness backend available on this platform")
	ErrUnknownBackend      = errors.New("unknown readiness backend")
	ErrFDTooLarge          = errors.New("file descriptor exceeds FD_SETSIZE")
	ErrNotRegistered       = errors.New("file descriptor not registered")
)

// Poller watches file descriptors for readability.
type Poller interface {
	// Register adds fd to the watched set.
	Register(fd int) error
	// Unregister removes fd from the watched set.
	Unregister(fd int) error
	// Wait blocks for at most timeout and returns the ready descriptors.
	// An interrupted wait returns an empty set and no error.
	Wait(timeout time.Duration) ([]int, error)
	// Close releases the backend.
	Close() error
	// Backend reports which mechanism is in use.
	Backend() Backend
}

type constructor func() (Poller, error)

// constructors holds the backends compiled for this GOOS. Each backend file
// adds itself from init.
var constructors = map[Backend]constructor{}

func register(b Backend, c constructor) {
	constructors[b] = c
}

var bsd = map[string]bool{
	"darwin": true, "ios": true, "dragonfly": true,
	"freebsd": true, "netbsd": true, "openbsd": true,
}

var unixLike = map[string]bool{
	"aix": true, "android": true, "illumos": true, "linux": true, "solaris": true,
}

// Preference returns the ordered backend list tried for goos.
func Preference(goos string) []Backend {
	switch {
	case goos == "linux" || goos == "android":
		return []Backend{Epoll, Poll, Select}
	case bsd[goos]:
		return []Backend{Kqueue, Poll, Select}
	case unixLike[goos]:
		return []Backend{Poll, Select}
	default:
		return []Backend{Select}
	}
}

// Available lists the backends compiled into this binary, in preference
// order for the running OS.
func Available() []Backend {
	var out []Backend
	for _, b := range Preference(runtime.GOOS) {
		if _, ok := constructors[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

// New constructs the requested backend. Auto walks the preference list and
// returns the first backend that initializes.
func New(b Backend) (Poller, error) {
	switch b {
	case Auto:
		var lastErr error = ErrUnsupportedPlatform
		for _, candidate := range Preference(runtime.GOOS) {
			ctor, ok := constructors[candidate]
			if !ok {
				continue
			}
			p, err := ctor()
			if err == nil {
				return p, nil
			}
			lastErr = err
		}
		return nil, lastErr
	case IOCP:
		return nil, fmt.Errorf("%w: %s is reserved", ErrUnsupportedPlatform, b)
	case Epoll, Kqueue, Poll, Select:
		ctor, ok := constructors[b]
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedPlatform, b, runtime.GOOS)
		}
		return ctor()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, string(b))
	}
}

// ParseBackend validates a configured backend name. An empty name or
// "auto" selects Auto.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case Auto, "auto":
		return Auto, nil
	case Epoll, Kqueue, Poll, Select, IOCP:
		return Backend(name), nil
	}
	return Auto, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

func millis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := int(timeout / time.Millisecond)
	if ms == 0 && timeout > 0 {
		ms = 1
	}
	return ms
}
