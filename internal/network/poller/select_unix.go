//go:build unix

package poller

import (
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

// fdSetSize is the FD_SETSIZE every supported libc ships with.
const fdSetSize = 1024

func init() {
	register(Select, newSelect)
}

type selectPoller struct {
	fds map[int]struct{}
	max int
}

func newSelect() (Poller, error) {
	return &selectPoller{fds: make(map[int]struct{}), max: -1}, nil
}

func (p *selectPoller) Register(fd int) error {
	if fd < 0 || fd >= fdSetSize {
		return ErrFDTooLarge
	}
	p.fds[fd] = struct{}{}
	if fd > p.max {
		p.max = fd
	}
	return nil
}

func (p *selectPoller) Unregister(fd int) error {
	if _, ok := p.fds[fd]; !ok {
		return ErrNotRegistered
	}
	delete(p.fds, fd)
	if fd == p.max {
		p.max = -1
		for f := range p.fds {
			if f > p.max {
				p.max = f
			}
		}
	}
	return nil
}

func (p *selectPoller) Wait(timeout time.Duration) ([]int, error) {
	var set unix.FdSet
	set.Zero()
	for fd := range p.fds {
		set.Set(fd)
	}

	var tv *unix.Timeval
	if timeout >= 0 {
		t := unix.NsecToTimeval(int64(timeout))
		tv = &t
	}

	n, err := unix.Select(p.max+1, &set, nil, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	ready := make([]int, 0, n)
	for fd := range p.fds {
		if set.IsSet(fd) {
			ready = append(ready, fd)
		}
	}
	sort.Ints(ready)
	return ready, nil
}

func (p *selectPoller) Close() error {
	p.fds = map[int]struct{}{}
	p.max = -1
	return nil
}

func (p *selectPoller) Backend() Backend {
	return Select
}
