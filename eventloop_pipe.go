//go:build !linux

package nex

import "os"

// wakeupFd lets QueueInLoop/Quit interrupt a blocked poll() call from any
// goroutine. Present for API completeness on non-Linux build targets; the
// reactor's poller is epoll-based and Linux-only, so nothing in this module
// actually constructs an EventLoop on these platforms today.
type wakeupFd interface {
	fd() int
	signal()
	drain()
}

// pipeWakeup falls back to a self-pipe where eventfd isn't available.
type pipeWakeup struct {
	r *os.File
	w *os.File
}

func newWakeupFd() (wakeupFd, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &pipeWakeup{r: r, w: w}, nil
}

func (p *pipeWakeup) fd() int { return int(p.r.Fd()) }

func (p *pipeWakeup) signal() {
	p.w.Write([]byte{1})
}

func (p *pipeWakeup) drain() {
	var buf [64]byte
	for {
		n, err := p.r.Read(buf[:])
		if n < len(buf) || err != nil {
			return
		}
	}
}
