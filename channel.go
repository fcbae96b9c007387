package nex

import "golang.org/x/sys/unix"

// epollNVAL mirrors the kernel's EPOLLNVAL bit (0x20), which this version of
// golang.org/x/sys/unix does not export.
const epollNVAL = 0x20

// channel registration status with the poller.
const (
	chanNew = iota
	chanAdded
	chanDeleted
)

// Channel ties one file descriptor's interest mask and readiness callbacks
// to the EventLoop that polls it. A Channel belongs to exactly one loop for
// its whole life and must only be touched from that loop's goroutine.
type Channel struct {
	noCopy

	loop *EventLoop
	fd   int

	events  uint32 // interest mask, as set by enable/disable calls
	revents uint32 // events the poller reported ready on the last pass
	status  int

	readCallback  func()
	writeCallback func()
	closeCallback func()
	errorCallback func()

	// tied and alive substitute for the owning connection's weak-pointer
	// tie in the original: tied records that Tie was called, and alive
	// reports the owner's liveness (for a TcpConnection, false once it is
	// Disconnected), so a readiness event racing the teardown is dropped
	// instead of dispatched into a half-destroyed connection.
	tied    bool
	alive   func() bool
	handling bool
}

const (
	readEvent  = unix.EPOLLIN | unix.EPOLLPRI
	writeEvent = unix.EPOLLOUT
)

// newChannel wraps fd for registration with loop. It starts with no
// interest mask and status chanNew, meaning the poller has never heard of
// it.
func newChannel(loop *EventLoop, fd int) *Channel {
	return &Channel{loop: loop, fd: fd, status: chanNew}
}

func (c *Channel) Fd() int { return c.fd }

// SetReadCallback installs the readiness handler invoked when the fd
// becomes readable, hangs up, or the peer half-closes.
func (c *Channel) SetReadCallback(fn func())  { c.readCallback = fn }
func (c *Channel) SetWriteCallback(fn func()) { c.writeCallback = fn }
func (c *Channel) SetCloseCallback(fn func())  { c.closeCallback = fn }
func (c *Channel) SetErrorCallback(fn func()) { c.errorCallback = fn }

// Tie ties this channel's dispatch to alive's liveness: once alive reports
// false, handleEvent becomes a no-op. Used by TcpConnection so a channel
// close event racing connection destruction never runs a stale callback.
func (c *Channel) Tie(alive func() bool) {
	c.alive = alive
	c.tied = true
}

func (c *Channel) IsWriting() bool { return c.events&writeEvent != 0 }
func (c *Channel) IsReading() bool { return c.events&readEvent != 0 }
func (c *Channel) isNoneEvent() bool { return c.events == 0 }

// EnableReading arms read/hangup interest and pushes the update to the
// poller via the owning loop.
func (c *Channel) EnableReading() {
	c.events |= readEvent
	c.update()
}

func (c *Channel) DisableReading() {
	c.events &^= readEvent
	c.update()
}

func (c *Channel) EnableWriting() {
	c.events |= writeEvent
	c.update()
}

func (c *Channel) DisableWriting() {
	c.events &^= writeEvent
	c.update()
}

func (c *Channel) DisableAll() {
	c.events = 0
	c.update()
}

func (c *Channel) update() {
	c.loop.updateChannel(c)
}

// Remove deregisters the channel from its loop's poller entirely. Callers
// must have already disabled all interest.
func (c *Channel) Remove() {
	c.loop.removeChannel(c)
}

// setRevents is called by the poller after a readiness pass, recording
// which of the channel's registered interests fired.
func (c *Channel) setRevents(revents uint32) { c.revents = revents }

// handleEvent dispatches the last recorded revents to the matching
// callbacks. Order matters: a hangup with no readable data closes before
// anything else runs, errors are reported next, then read, then write --
// matching the order data can still be drained before the connection is
// torn down.
func (c *Channel) handleEvent() {
	if c.tied && c.alive != nil && !c.alive() {
		return
	}
	c.handling = true
	defer func() { c.handling = false }()

	revents := c.revents
	if revents&unix.EPOLLHUP != 0 && revents&unix.EPOLLIN == 0 {
		if c.closeCallback != nil {
			c.closeCallback()
		}
		return
	}
	if revents&(unix.EPOLLERR|epollNVAL) != 0 {
		if c.errorCallback != nil {
			c.errorCallback()
		}
	}
	if revents&(unix.EPOLLIN|unix.EPOLLPRI|unix.EPOLLRDHUP) != 0 {
		if c.readCallback != nil {
			c.readCallback()
		}
	}
	if revents&unix.EPOLLOUT != 0 {
		if c.writeCallback != nil {
			c.writeCallback()
		}
	}
}
