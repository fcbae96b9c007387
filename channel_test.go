package nex

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestChannelDispatchesReadEvent(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	done := make(chan struct{})
	var got string
	ch := newChannel(loop, int(r.Fd()))
	ch.SetReadCallback(func() {
		buf := make([]byte, 64)
		n, _ := r.Read(buf)
		got = string(buf[:n])
		close(done)
	})
	ch.EnableReading()

	go loop.Loop()
	defer loop.Quit()

	_, err = w.Write([]byte("hi"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read callback never fired")
	}
	require.Equal(t, "hi", got)
}

func TestChannelTieSkipsDispatchWhenNotAlive(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fired := false
	ch := newChannel(loop, int(r.Fd()))
	ch.SetReadCallback(func() { fired = true })

	alive := false
	ch.Tie(func() bool { return alive })

	ch.setRevents(unix.EPOLLIN)
	ch.handleEvent()
	require.False(t, fired, "a tied channel whose owner reports not-alive must not dispatch")

	alive = true
	ch.handleEvent()
	require.True(t, fired)
}
