package nex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTcpConnectionSendReturnsErrNotConnectedBeforeEstablished(t *testing.T) {
	loop, err := NewEventLoop(nil)
	require.NoError(t, err)
	go loop.Loop()
	defer loop.Quit()

	conn := newTcpConnection(loop, "test-conn", -1, InetAddress{}, InetAddress{}, nil)
	require.False(t, conn.Connected())

	err = conn.Send([]byte("hi"))
	require.ErrorIs(t, err, ErrNotConnected)
}
