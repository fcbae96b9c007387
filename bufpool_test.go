package nex

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufpoolRoundTrip(t *testing.T) {
	bf := bMalloc(333)
	bf[0] = 'a'
	require.Len(t, bf, 333)
	bFree(bf)

	bf2 := bMalloc(333)
	require.Len(t, bf2, 333)
	bFree(bf2)
}

func TestBufpoolBuckets(t *testing.T) {
	var wg sync.WaitGroup
	free := func(bf []byte) {
		defer wg.Done()
		bFree(bf)
	}

	for i := 0; i < 16; i++ {
		s := int(rand.Int63()%(128*7-16) + 16)
		bf := bMalloc(s)
		require.Len(t, bf, s, "btPool bucket")
		wg.Add(1)
		go free(bf)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		s := int(rand.Int63()%(1024*1023-16) + 16)
		bf := bMalloc(s)
		require.Len(t, bf, s, "kbPool bucket")
		wg.Add(1)
		go free(bf)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		s := int(rand.Int63()%(1024*1024*int64(bufPoolMaxMBytes)-16) + 16)
		bf := bMalloc(s)
		require.Len(t, bf, s, "mbPool bucket")
		wg.Add(1)
		go free(bf)
	}
	wg.Wait()

	bufPoolAdjust()
}
