package nex

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// loopThread owns one EventLoop running on its own goroutine, started and
// stopped as a unit.
type loopThread struct {
	loop    *EventLoop
	name    string
	started chan struct{}
	doneErr error
	wg      sync.WaitGroup
	connN   atomic.Int64
}

func newLoopThread(name string, log *zap.Logger) (*loopThread, error) {
	loop, err := NewEventLoop(log)
	if err != nil {
		return nil, err
	}
	return &loopThread{loop: loop, name: name, started: make(chan struct{})}, nil
}

func (t *loopThread) start(init func(*EventLoop)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if init != nil {
			init(t.loop)
		}
		close(t.started)
		t.doneErr = t.loop.Loop()
	}()
	<-t.started
}

func (t *loopThread) stop() error {
	t.loop.Quit()
	t.wg.Wait()
	return t.doneErr
}

// EventLoopThreadPool runs a fixed number of worker loops on their own
// goroutines, handing them out to callers round-robin. With zero worker
// threads, every call to GetNextLoop returns the pool's base loop, so a
// single-threaded server need not special-case "no pool".
type EventLoopThreadPool struct {
	baseLoop       *EventLoop
	name           string
	log            *zap.Logger
	maxConnPerLoop int

	started bool
	next    int
	threads []*loopThread
	loops   []*EventLoop
}

// NewEventLoopThreadPool creates a pool that falls back to baseLoop when it
// has no worker threads; with workers, round-robin covers only the worker
// loops. maxConnPerLoop of 0 means round-robin never skips a loop for being
// "too full".
func NewEventLoopThreadPool(baseLoop *EventLoop, name string, log *zap.Logger, maxConnPerLoop int) *EventLoopThreadPool {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventLoopThreadPool{baseLoop: baseLoop, name: name, log: log, maxConnPerLoop: maxConnPerLoop}
}

// Start spins up numThreads worker loops, each running init (if non-nil)
// before entering its poll loop. If numThreads is 0, init runs against
// baseLoop instead and GetNextLoop always returns baseLoop.
func (p *EventLoopThreadPool) Start(numThreads int, init func(*EventLoop)) error {
	p.started = true
	for i := 0; i < numThreads; i++ {
		t, err := newLoopThread(fmt.Sprintf("%s-%d", p.name, i), p.log)
		if err != nil {
			return multierr.Append(err, p.stopStarted())
		}
		t.start(init)
		p.threads = append(p.threads, t)
		p.loops = append(p.loops, t.loop)
	}
	if numThreads == 0 && init != nil {
		init(p.baseLoop)
	}
	return nil
}

func (p *EventLoopThreadPool) stopStarted() error {
	var err error
	for _, t := range p.threads {
		err = multierr.Append(err, t.stop())
	}
	p.threads = nil
	p.loops = nil
	return err
}

// Stop quits and joins every worker loop. Safe to call even if Start was
// never called or numThreads was 0.
func (p *EventLoopThreadPool) Stop() error {
	return p.stopStarted()
}

// GetNextLoop returns the next loop in round-robin order, or baseLoop if
// the pool has no worker threads. When maxConnPerLoop is set, a loop
// already at capacity is skipped in favor of the next one; if every loop
// is at capacity, round-robin proceeds anyway rather than rejecting the
// connection outright.
func (p *EventLoopThreadPool) GetNextLoop() *EventLoop {
	if len(p.loops) == 0 {
		return p.baseLoop
	}
	if p.maxConnPerLoop <= 0 {
		t := p.threads[p.next]
		p.next = (p.next + 1) % len(p.loops)
		t.connN.Add(1)
		return t.loop
	}
	for i := 0; i < len(p.loops); i++ {
		idx := (p.next + i) % len(p.loops)
		if p.threads[idx].connN.Load() < int64(p.maxConnPerLoop) {
			p.next = (idx + 1) % len(p.loops)
			p.threads[idx].connN.Add(1)
			return p.loops[idx]
		}
	}
	t := p.threads[p.next]
	p.next = (p.next + 1) % len(p.loops)
	t.connN.Add(1)
	return t.loop
}

// releaseConn decrements the connection count tracked against loop, used by
// maxConnPerLoop bookkeeping when a connection tied to that loop is torn
// down.
func (p *EventLoopThreadPool) releaseConn(loop *EventLoop) {
	for _, t := range p.threads {
		if t.loop == loop {
			t.connN.Add(-1)
			return
		}
	}
}

// AllLoops returns every loop in the pool, including baseLoop if there are
// no worker threads.
func (p *EventLoopThreadPool) AllLoops() []*EventLoop {
	if len(p.loops) == 0 {
		return []*EventLoop{p.baseLoop}
	}
	return p.loops
}
