//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package poller

import (
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	register(Kqueue, newKqueue)
}

type kqueuePoller struct {
	kq     int
	count  int
	events []unix.Kevent_t
}

func newKqueue() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)
	return &kqueuePoller{kq: kq, events: make([]unix.Kevent_t, 64)}, nil
}

func (p *kqueuePoller) change(fd, flags int) error {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, fd, unix.EVFILT_READ, flags)
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *kqueuePoller) Register(fd int) error {
	if err := p.change(fd, unix.EV_ADD|unix.EV_ENABLE); err != nil {
		return err
	}
	p.count++
	return nil
}

func (p *kqueuePoller) Unregister(fd int) error {
	if err := p.change(fd, unix.EV_DELETE); err != nil {
		if err == unix.ENOENT {
			return ErrNotRegistered
		}
		return err
	}
	p.count--
	return nil
}

func (p *kqueuePoller) Wait(timeout time.Duration) ([]int, error) {
	if need := p.count + 1; need > len(p.events) {
		p.events = make([]unix.Kevent_t, need*2)
	}

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}

	n, err := unix.Kevent(p.kq, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ready = append(ready, int(p.events[i].Ident))
	}
	return ready, nil
}

func (p *kqueuePoller) Close() error {
	return unix.Close(p.kq)
}

func (p *kqueuePoller) Backend() Backend {
	return Kqueue
}
