//go:build linux

package nex

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// wakeupFd lets QueueInLoop/Quit interrupt a blocked poll() call from any
// goroutine.
type wakeupFd interface {
	fd() int
	signal()
	drain()
}

// eventfdWakeup is an eventfd(2) counter in EFD_NONBLOCK mode. A write adds
// to the kernel-held counter and a read atomically consumes it; epoll
// reports the fd readable whenever the counter is nonzero. Writes and reads
// must always move a full 8-byte uint64 -- a short write leaves the
// counter corrupted and the next read malformed.
type eventfdWakeup struct {
	efd int
}

func newWakeupFd() (wakeupFd, error) {
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &eventfdWakeup{efd: efd}, nil
}

func (w *eventfdWakeup) fd() int { return w.efd }

func (w *eventfdWakeup) signal() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(w.efd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}

func (w *eventfdWakeup) drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.efd, buf[:])
		if err == unix.EINTR {
			continue
		}
		return
	}
}
