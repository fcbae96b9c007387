package nex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventLoopThreadPoolRoundRobinsAcrossLoops(t *testing.T) {
	base, err := NewEventLoop(nil)
	require.NoError(t, err)
	go base.Loop()
	defer base.Quit()

	pool := NewEventLoopThreadPool(base, "test", nil, 0)
	require.NoError(t, pool.Start(3, nil))
	defer pool.Stop()

	seen := map[*EventLoop]int{}
	for i := 0; i < 6; i++ {
		seen[pool.GetNextLoop()]++
	}
	require.Len(t, seen, 3, "round robin over 3 worker loops must visit all of them")
	for _, n := range seen {
		require.Equal(t, 2, n)
	}
}

func TestEventLoopThreadPoolZeroThreadsReturnsBaseLoop(t *testing.T) {
	base, err := NewEventLoop(nil)
	require.NoError(t, err)
	go base.Loop()
	defer base.Quit()

	pool := NewEventLoopThreadPool(base, "test", nil, 0)
	require.NoError(t, pool.Start(0, nil))
	require.Equal(t, base, pool.GetNextLoop())
}

func TestEventLoopThreadPoolMaxConnPerLoopSkipsFullLoops(t *testing.T) {
	base, err := NewEventLoop(nil)
	require.NoError(t, err)
	go base.Loop()
	defer base.Quit()

	pool := NewEventLoopThreadPool(base, "test", nil, 1)
	require.NoError(t, pool.Start(2, nil))
	defer pool.Stop()

	first := pool.GetNextLoop()
	second := pool.GetNextLoop()
	require.NotEqual(t, first, second, "the first loop is at its cap of 1, so round robin must pick the other")

	pool.releaseConn(second)
	third := pool.GetNextLoop()
	require.Equal(t, second, third, "round robin is back at the first loop, which is still full, so it must skip to the released second loop")
}
