package nex

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// pollTimeout bounds how long a single poll() call blocks when nothing else
// is pending, so timers and queued cross-thread tasks still get serviced
// promptly even when no fd is ready.
const pollTimeout = 10 * time.Millisecond

// EventLoop is a single-threaded, cooperative scheduler: one goroutine runs
// Loop, repeatedly polling for I/O readiness, dispatching it, expiring
// timers, and draining tasks queued from other goroutines. Every Channel,
// Connection and Timer created against a loop is only ever touched from
// that loop's own goroutine, except via RunInLoop/QueueInLoop.
//
// The loop pins itself to its OS thread with runtime.LockOSThread for the
// duration of Loop, and records that thread's tid so IsInLoopThread can
// answer without any shared state beyond a single atomic load.
type EventLoop struct {
	noCopy

	poller *poller
	timers *TimerManager

	tid     atomic.Int32 // gettid() of the goroutine running Loop, 0 before started
	quit    atomic.Bool
	wakeup  wakeupFd

	mu            sync.Mutex
	pendingTasks  *queue.Queue
	handlingTasks atomic.Bool

	activeChannels []*Channel

	cachedNow atomic.Int64 // unix millis, refreshed once per iteration

	log *zap.Logger
}

// NewEventLoop constructs a loop with its own epoll instance, wakeup fd and
// timer manager. The loop does nothing until Loop is called.
func NewEventLoop(log *zap.Logger) (*EventLoop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	loop := &EventLoop{
		poller:       p,
		timers:       newTimerManager(),
		pendingTasks: queue.New(),
		log:          log,
	}
	wfd, err := newWakeupFd()
	if err != nil {
		p.close()
		return nil, err
	}
	loop.wakeup = wfd
	ch := newChannel(loop, wfd.fd())
	ch.SetReadCallback(loop.handleWakeup)
	ch.EnableReading()
	return loop, nil
}

// Loop pins the calling goroutine to its OS thread and runs until Quit is
// called. It must be invoked from the goroutine that is to become this
// loop's owner, and must not be called more than once or concurrently with
// itself.
func (l *EventLoop) Loop() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	l.tid.Store(int32(unix.Gettid()))
	defer l.tid.Store(0)

	for !l.quit.Load() {
		l.activeChannels = l.activeChannels[:0]
		active, err := l.poller.poll(pollTimeout, l.activeChannels)
		if err != nil {
			return err
		}
		l.activeChannels = active
		now := time.Now()
		l.cachedNow.Store(now.UnixMilli())
		for _, ch := range l.activeChannels {
			ch.handleEvent()
		}
		l.timers.processExpired(now)
		l.doPendingTasks()
	}
	return nil
}

// Quit asks the loop to stop after its current iteration. Safe to call
// from any goroutine.
func (l *EventLoop) Quit() {
	l.quit.Store(true)
	if !l.IsInLoopThread() {
		l.wakeup.signal()
	}
}

// IsInLoopThread reports whether the calling goroutine is running on the
// OS thread pinned by Loop. Before Loop starts (or after it returns) this
// always reports false, so RunInLoop degrades to QueueInLoop in that
// window, which is always safe.
func (l *EventLoop) IsInLoopThread() bool {
	tid := l.tid.Load()
	return tid != 0 && tid == int32(unix.Gettid())
}

// RunInLoop runs fn immediately if called from the loop's own goroutine,
// otherwise queues it and wakes the loop.
func (l *EventLoop) RunInLoop(fn func()) {
	if l.IsInLoopThread() {
		fn()
		return
	}
	l.QueueInLoop(fn)
}

// QueueInLoop always defers fn to the next doPendingTasks pass (a task
// queued while a pass is draining waits for the following one, since each
// pass drains only what was queued when it started), waking the loop if
// needed so it doesn't wait out the rest of pollTimeout first.
func (l *EventLoop) QueueInLoop(fn func()) {
	l.mu.Lock()
	l.pendingTasks.Add(fn)
	l.mu.Unlock()

	if !l.IsInLoopThread() || l.handlingTasks.Load() {
		l.wakeup.signal()
	}
}

func (l *EventLoop) doPendingTasks() {
	l.mu.Lock()
	n := l.pendingTasks.Length()
	tasks := make([]func(), 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, l.pendingTasks.Remove().(func()))
	}
	l.mu.Unlock()

	l.handlingTasks.Store(true)
	for _, fn := range tasks {
		fn()
	}
	l.handlingTasks.Store(false)
}

func (l *EventLoop) handleWakeup() {
	l.wakeup.drain()
}

func (l *EventLoop) updateChannel(ch *Channel) {
	if err := l.poller.updateChannel(ch); err != nil {
		l.log.Error("updateChannel failed", zap.Int("fd", ch.fd), zap.Error(err))
	}
}

func (l *EventLoop) removeChannel(ch *Channel) {
	if err := l.poller.removeChannel(ch); err != nil {
		l.log.Error("removeChannel failed", zap.Int("fd", ch.fd), zap.Error(err))
	}
}

// RunAfter schedules fn to run once, delay from now.
func (l *EventLoop) RunAfter(delay time.Duration, fn func()) TimerID {
	return l.timers.add(time.Now().Add(delay), 0, fn)
}

// RunEvery schedules fn to run repeatedly, first after delay and then every
// interval thereafter.
func (l *EventLoop) RunEvery(delay, interval time.Duration, fn func()) TimerID {
	return l.timers.add(time.Now().Add(delay), interval, fn)
}

// CancelTimer cancels a timer previously returned by RunAfter/RunEvery,
// returning ErrTimerNotFound if the timer already fired (and was not
// recurring) or was already canceled.
func (l *EventLoop) CancelTimer(id TimerID) error {
	return l.timers.cancel(id)
}

// CachedNow returns the time.Now() value captured at the start of the
// loop's current (or most recent) iteration, for callers on a hot path that
// want a timestamp without paying for a fresh syscall per call.
func (l *EventLoop) CachedNow() time.Time {
	return time.UnixMilli(l.cachedNow.Load())
}
