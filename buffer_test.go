package nex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferAppendRetrieveRoundTrip(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("hello "))
	b.Append([]byte("world"))
	require.Equal(t, "hello world", string(b.Peek()))

	b.Retrieve(6)
	require.Equal(t, "world", string(b.Peek()))

	b.Retrieve(100) // more than readable: resets to empty
	require.Equal(t, 0, b.ReadableBytes())
}

func TestBufferGrowthPreservesReadableBytes(t *testing.T) {
	b := NewBuffer()
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}
	b.Append(payload)
	require.Equal(t, len(payload), b.ReadableBytes())
	require.Equal(t, payload, b.Peek())
}

func TestBufferCompactionReclaimsSpace(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("0123456789"))
	b.Retrieve(8)
	before := b.ReadableBytes()

	// Append enough to force ensureWritable into the compaction branch
	// (writable+prependable-floor covers it without reallocating).
	n := b.WritableBytes() + b.PrependableBytes() - prependFloor - 1
	b.Append(make([]byte, n))
	require.Equal(t, before+n, b.ReadableBytes())
	require.Equal(t, prependFloor, b.PrependableBytes(), "compaction slides the readable bytes down to the prepend floor")
}

func TestBufferPrependRequiresHeadroom(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("payload"))
	b.Prepend([]byte("hdr"))
	require.Equal(t, "hdrpayload", string(b.Peek()))

	require.Panics(t, func() {
		b.Prepend(make([]byte, prependFloor+1))
	})
}

func TestBufferFindCRLF(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("GET / HTTP/1.1\r\nHost: a\r\n\r\n"))

	i := b.FindCRLF(0)
	require.Equal(t, len("GET / HTTP/1.1"), i)

	i2 := b.FindCRLF(i + 2)
	require.Equal(t, len("GET / HTTP/1.1\r\nHost: a"), i2)

	b.Retrieve(i2 + 2)
	require.Equal(t, 0, b.FindCRLF(0))
}

func TestBufferRetrieveUntil(t *testing.T) {
	b := NewBuffer()
	b.Append([]byte("abc\r\ndef"))
	i := b.FindCRLF(0)
	require.NotEqual(t, -1, i)
	b.RetrieveUntil(i)
	require.Equal(t, "\r\ndef", string(b.Peek()))
}
