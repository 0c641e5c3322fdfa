//go:build unix

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	register(Poll, newPoll)
}

type pollPoller struct {
	fds   []unix.PollFd
	index map[int]int
}

func newPoll() (Poller, error) {
	return &pollPoller{index: make(map[int]int)}, nil
}

func (p *pollPoller) Register(fd int) error {
	if _, ok := p.index[fd]; ok {
		return nil
	}
	p.index[fd] = len(p.fds)
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	return nil
}

func (p *pollPoller) Unregister(fd int) error {
	i, ok := p.index[fd]
	if !ok {
		return ErrNotRegistered
	}
	last := len(p.fds) - 1
	if i != last {
		p.fds[i] = p.fds[last]
		p.index[int(p.fds[i].Fd)] = i
	}
	p.fds = p.fds[:last]
	delete(p.index, fd)
	return nil
}

func (p *pollPoller) Wait(timeout time.Duration) ([]int, error) {
	for i := range p.fds {
		p.fds[i].Revents = 0
	}

	n, err := unix.Poll(p.fds, millis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	ready := make([]int, 0, n)
	for _, pfd := range p.fds {
		if pfd.Revents != 0 {
			ready = append(ready, int(pfd.Fd))
		}
	}
	return ready, nil
}

func (p *pollPoller) Close() error {
	p.fds = nil
	p.index = map[int]int{}
	return nil
}

func (p *pollPoller) Backend() Backend {
	return Poll
}
