package nex

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAcceptorUsesConfiguredBacklogAndAcceptsConnections(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)
	go loop.Loop()
	defer loop.Quit()

	addr, err := NewInetAddress("127.0.0.1:18191")
	require.NoError(t, err)

	acc, err := NewAcceptor(loop, addr, false, 16, nil)
	require.NoError(t, err)
	require.Equal(t, 16, acc.backlog, "backlog option must reach the Acceptor instead of the hardcoded default")

	accepted := make(chan InetAddress, 1)
	acc.SetNewConnectionCallback(func(fd int, peer InetAddress) {
		unix.Close(fd)
		accepted <- peer
	})

	listenErr := make(chan error, 1)
	loop.RunInLoop(func() { listenErr <- acc.Listen() })
	require.NoError(t, <-listenErr)

	conn, err := net.Dial("tcp", "127.0.0.1:18191")
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("connection was never accepted")
	}
}

func TestAcceptorDefaultsBacklogWhenUnset(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)

	addr, err := NewInetAddress("127.0.0.1:18192")
	require.NoError(t, err)

	acc, err := NewAcceptor(loop, addr, false, 0, nil)
	require.NoError(t, err)
	defer acc.Close()
	require.Equal(t, defaultListenBacklog, acc.backlog)
}
