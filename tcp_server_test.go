package nex

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTcpServerConnectionCallbackFiresOnEstablishAndTeardown(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)
	go loop.Loop()
	defer loop.Quit()

	addr, err := NewInetAddress("127.0.0.1:18193")
	require.NoError(t, err)

	srv, err := NewTcpServer(loop, addr, "test", nil, ThreadNum(0))
	require.NoError(t, err)

	events := make(chan bool, 4)
	srv.SetConnectionCallback(func(c *TcpConnection) {
		events <- c.Connected()
	})
	require.NoError(t, srv.Start())
	defer srv.Stop()

	conn, err := net.Dial("tcp", "127.0.0.1:18193")
	require.NoError(t, err)

	select {
	case connected := <-events:
		require.True(t, connected)
	case <-time.After(time.Second):
		t.Fatal("connection callback never fired on establish")
	}

	conn.Close()

	select {
	case connected := <-events:
		require.False(t, connected,
			"connection callback must also fire on teardown -- regression test for handleClose "+
				"clobbering the state connectDestroyed relies on to fire exactly once")
	case <-time.After(time.Second):
		t.Fatal("connection callback never fired on teardown")
	}
}

func TestTcpServerEchoesMessageAndRoundRobinsAcrossThreads(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)
	go loop.Loop()
	defer loop.Quit()

	addr, err := NewInetAddress("127.0.0.1:18194")
	require.NoError(t, err)

	srv, err := NewTcpServer(loop, addr, "echo", nil, ThreadNum(2))
	require.NoError(t, err)

	loops := make(chan *EventLoop, 8)
	srv.SetConnectionCallback(func(c *TcpConnection) {
		if c.Connected() {
			loops <- c.Loop()
		}
	})
	srv.SetMessageCallback(func(c *TcpConnection, buf *Buffer) {
		c.Send(buf.Peek())
		buf.RetrieveAll()
	})
	require.NoError(t, srv.Start())
	defer srv.Stop()

	seen := map[*EventLoop]bool{}
	for i := 0; i < 4; i++ {
		conn, err := net.Dial("tcp", "127.0.0.1:18194")
		require.NoError(t, err)
		defer conn.Close()

		select {
		case l := <-loops:
			seen[l] = true
		case <-time.After(time.Second):
			t.Fatal("connection callback never fired")
		}

		_, err = conn.Write([]byte("ping"))
		require.NoError(t, err)

		buf := make([]byte, 4)
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, err := conn.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "ping", string(buf[:n]))
	}
	require.Len(t, seen, 2, "connections must be distributed across both worker loops")
}
