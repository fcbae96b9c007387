package nex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventLoopRunInLoopExecutesOnLoopThread(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)
	go loop.Loop()
	defer loop.Quit()

	done := make(chan bool, 1)
	loop.RunInLoop(func() {
		done <- loop.IsInLoopThread()
	})

	select {
	case onLoop := <-done:
		require.True(t, onLoop)
	case <-time.After(time.Second):
		t.Fatal("RunInLoop task never ran")
	}
}

func TestEventLoopRunAfterFiresTimer(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)
	go loop.Loop()
	defer loop.Quit()

	fired := make(chan struct{})
	loop.RunInLoop(func() { loop.RunAfter(20*time.Millisecond, func() { close(fired) }) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestEventLoopCancelTimerReturnsErrTimerNotFoundForUnknownID(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)
	go loop.Loop()
	defer loop.Quit()

	result := make(chan error, 1)
	loop.RunInLoop(func() { result <- loop.CancelTimer(TimerID(99999)) })

	select {
	case err := <-result:
		require.ErrorIs(t, err, ErrTimerNotFound)
	case <-time.After(time.Second):
		t.Fatal("CancelTimer task never ran")
	}
}
