//go:build linux

package nex

import (
	"time"

	"golang.org/x/sys/unix"
)

// initPollEvents is the starting capacity of the event buffer passed to
// epoll_wait; it doubles whenever a poll comes back completely full, since
// that's the only reliable signal more events were waiting than fit.
const initPollEvents = 16

// poller wraps one epoll instance and the channels currently registered
// with it. It belongs to exactly one EventLoop and is never touched from
// any other goroutine.
type poller struct {
	epollFd int
	events  []unix.EpollEvent
	// channels indexes registered channels by fd. Only ever touched from
	// the owning loop's goroutine, so a plain map is enough -- no locking.
	channels map[int]*Channel
}

func newPoller() (*poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{
		epollFd:  fd,
		events:   make([]unix.EpollEvent, initPollEvents),
		channels: make(map[int]*Channel),
	}, nil
}

func (p *poller) close() error {
	return unix.Close(p.epollFd)
}

// poll blocks for up to timeout waiting for readiness, appending the ready
// channels to active (active's underlying array is reused across calls by
// the caller resetting its length to 0 first). A negative timeout blocks
// indefinitely; EINTR is swallowed since it is a benign, expected wakeup
// source (e.g. a process-wide signal) rather than an error.
func (p *poller) poll(timeout time.Duration, active []*Channel) ([]*Channel, error) {
	ms := int(timeout / time.Millisecond)
	n, err := unix.EpollWait(p.epollFd, p.events, ms)
	if err != nil {
		if err == unix.EINTR {
			return active, nil
		}
		return active, err
	}
	for i := 0; i < n; i++ {
		ev := p.events[i]
		ch, ok := p.channels[int(ev.Fd)]
		if !ok {
			continue
		}
		ch.setRevents(ev.Events)
		active = append(active, ch)
	}
	if n == len(p.events) {
		p.events = make([]unix.EpollEvent, len(p.events)*2)
	}
	return active, nil
}

// updateChannel pushes ch's current interest mask to epoll, issuing ADD,
// MOD or DEL depending on both the channel's prior registration status and
// whether it now has any interest at all.
func (p *poller) updateChannel(ch *Channel) error {
	switch ch.status {
	case chanNew, chanDeleted:
		if ch.status == chanNew {
			p.channels[ch.fd] = ch
		}
		ch.status = chanAdded
		return p.ctl(unix.EPOLL_CTL_ADD, ch)
	default: // chanAdded
		if ch.isNoneEvent() {
			ch.status = chanDeleted
			return p.ctl(unix.EPOLL_CTL_DEL, ch)
		}
		return p.ctl(unix.EPOLL_CTL_MOD, ch)
	}
}

// removeChannel fully deregisters ch. Safe to call whether or not ch is
// currently armed with epoll; leaves it in chanNew so a future re-add works.
func (p *poller) removeChannel(ch *Channel) error {
	delete(p.channels, ch.fd)
	var err error
	if ch.status == chanAdded {
		err = p.ctl(unix.EPOLL_CTL_DEL, ch)
	}
	ch.status = chanNew
	return err
}

func (p *poller) ctl(op int, ch *Channel) error {
	ev := unix.EpollEvent{Events: ch.events, Fd: int32(ch.fd)}
	return unix.EpollCtl(p.epollFd, op, ch.fd, &ev)
}
