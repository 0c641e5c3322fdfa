//go:build linux

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	register(Epoll, newEpoll)
}

type epollPoller struct {
	epfd   int
	count  int
	events []unix.EpollEvent
}

func newEpoll() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd, events: make([]unix.EpollEvent, 64)}, nil
}

func (p *epollPoller) Register(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLRDHUP, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return err
	}
	p.count++
	return nil
}

func (p *epollPoller) Unregister(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		if err == unix.ENOENT {
			return ErrNotRegistered
		}
		return err
	}
	p.count--
	return nil
}

func (p *epollPoller) Wait(timeout time.Duration) ([]int, error) {
	if need := p.count + 1; need > len(p.events) {
		p.events = make([]unix.EpollEvent, need*2)
	}

	n, err := unix.EpollWait(p.epfd, p.events, millis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ready = append(ready, int(p.events[i].Fd))
	}
	return ready, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

func (p *epollPoller) Backend() Backend {
	return Epoll
}
