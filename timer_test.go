package nex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerManagerOrdersByExpiration(t *testing.T) {
	tm := newTimerManager()
	base := time.Now()

	var order []int
	tm.add(base.Add(30*time.Millisecond), 0, func() { order = append(order, 3) })
	tm.add(base.Add(10*time.Millisecond), 0, func() { order = append(order, 1) })
	tm.add(base.Add(20*time.Millisecond), 0, func() { order = append(order, 2) })

	tm.processExpired(base.Add(100 * time.Millisecond))
	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, 0, tm.h.Len())
}

func TestTimerManagerCancelRemovesFromHeapAndIndex(t *testing.T) {
	tm := newTimerManager()
	base := time.Now()

	fired := false
	keep := tm.add(base.Add(10*time.Millisecond), 0, func() {})
	cancelMe := tm.add(base.Add(20*time.Millisecond), 0, func() { fired = true })

	tm.cancel(cancelMe)
	require.Equal(t, 1, tm.h.Len(), "canceled timer must be removed from the heap, not just orphaned")
	_, stillIndexed := tm.byID[cancelMe]
	require.False(t, stillIndexed)

	tm.processExpired(base.Add(100 * time.Millisecond))
	require.False(t, fired)
	_, keepStillIndexed := tm.byID[keep]
	require.False(t, keepStillIndexed) // one-shot, fired and cleaned up
}

func TestTimerManagerRecurringReschedules(t *testing.T) {
	tm := newTimerManager()
	base := time.Now()

	count := 0
	id := tm.add(base.Add(10*time.Millisecond), 10*time.Millisecond, func() { count++ })

	tm.processExpired(base.Add(10 * time.Millisecond))
	tm.processExpired(base.Add(20 * time.Millisecond))
	tm.processExpired(base.Add(30 * time.Millisecond))
	require.Equal(t, 3, count)
	require.Equal(t, 1, tm.h.Len())

	tm.cancel(id)
	tm.processExpired(base.Add(1000 * time.Millisecond))
	require.Equal(t, 3, count, "canceled recurring timer must not fire again")
}

func TestTimerManagerCancelDuringOwnCallbackStopsRecurrence(t *testing.T) {
	tm := newTimerManager()
	base := time.Now()

	var id TimerID
	count := 0
	id = tm.add(base.Add(10*time.Millisecond), 10*time.Millisecond, func() {
		count++
		if count == 2 {
			tm.cancel(id)
		}
	})

	tm.processExpired(base.Add(10 * time.Millisecond))
	tm.processExpired(base.Add(20 * time.Millisecond))
	tm.processExpired(base.Add(30 * time.Millisecond))
	require.Equal(t, 2, count)
}

func TestTimerManagerNextTimeout(t *testing.T) {
	tm := newTimerManager()
	base := time.Now()
	require.Equal(t, time.Duration(-1), tm.nextTimeout(base))

	tm.add(base.Add(50*time.Millisecond), 0, func() {})
	d := tm.nextTimeout(base)
	require.True(t, d > 0 && d <= 50*time.Millisecond)
}
