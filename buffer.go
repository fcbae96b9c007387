package nex

import (
	"bytes"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// prependFloor is the cheap prepend headroom reserved at the front of
	// every Buffer, so a caller wanting to stitch on a fixed-size header
	// (e.g. a length prefix) after the fact never has to reshuffle the
	// whole buffer to do it.
	prependFloor = 8
	// initialBufferSize is the capacity a freshly constructed Buffer starts
	// with, prepend headroom included.
	initialBufferSize = 1024
	// scratchReadSize is the size of the stack-local scratch region used by
	// ReadFromFD so a single readv(2) can pull in far more than whatever the
	// buffer's current writable window happens to be, without having to
	// guess the right capacity up front.
	scratchReadSize = 65536
)

var crlf = []byte("\r\n")

// Buffer is a resizable byte buffer with cheap-prepend headroom, split by two
// cursors into three zones: [0, r) reclaimed prepend space, [r, w) readable
// payload, [w, cap) writable space. It is exclusively owned by whatever
// holds it (a connection's input/output buffer, or a transient response
// buffer) -- nothing here is safe for concurrent use.
type Buffer struct {
	noCopy

	buf []byte
	r   int
	w   int
}

// NewBuffer returns an empty Buffer with the standard prepend headroom and
// initial capacity.
func NewBuffer() *Buffer {
	return &Buffer{
		buf: bMalloc(initialBufferSize),
		r:   prependFloor,
		w:   prependFloor,
	}
}

// ReadableBytes returns the number of bytes available to Peek/Retrieve.
func (b *Buffer) ReadableBytes() int { return b.w - b.r }

// WritableBytes returns the number of bytes that can be appended without
// growing or compacting the buffer.
func (b *Buffer) WritableBytes() int { return len(b.buf) - b.w }

// PrependableBytes returns the number of bytes available in front of the
// readable region, i.e. how much Prepend can write without error.
func (b *Buffer) PrependableBytes() int { return b.r }

// Peek returns a view of the readable bytes. The slice aliases the buffer's
// backing array and is only valid until the next mutating call.
func (b *Buffer) Peek() []byte { return b.buf[b.r:b.w] }

// Retrieve advances the read cursor by min(n, ReadableBytes()). If n is at
// least ReadableBytes(), both cursors reset to the prepend floor so the
// buffer fully reclaims the space rather than drifting forward forever.
func (b *Buffer) Retrieve(n int) {
	if n >= b.ReadableBytes() {
		b.RetrieveAll()
		return
	}
	b.r += n
}

// RetrieveAll empties the buffer, resetting both cursors to the prepend
// floor.
func (b *Buffer) RetrieveAll() {
	b.r = prependFloor
	b.w = prependFloor
}

// RetrieveUntil retrieves bytes up to (but not including) the given index
// into the readable region, counted from the start of Peek(). It is the
// caller's responsibility to pass an index obtained from searching Peek()
// (e.g. via FindCRLF), and it must lie within [0, ReadableBytes()].
func (b *Buffer) RetrieveUntil(index int) {
	b.Retrieve(index)
}

// RetrieveAsString retrieves n bytes and returns them as a string.
func (b *Buffer) RetrieveAsString(n int) string {
	s := string(b.buf[b.r : b.r+n])
	b.Retrieve(n)
	return s
}

// Append appends data to the writable region, growing or compacting the
// backing array first if it doesn't already fit.
func (b *Buffer) Append(data []byte) {
	b.ensureWritable(len(data))
	b.w += copy(b.buf[b.w:], data)
}

// Prepend writes data immediately before the read cursor and rewinds it.
// len(data) must be <= PrependableBytes().
func (b *Buffer) Prepend(data []byte) {
	if len(data) > b.r {
		panic("nex: Buffer.Prepend: not enough prependable space")
	}
	b.r -= len(data)
	copy(b.buf[b.r:], data)
}

// FindCRLF returns the index (relative to Peek()) of the first CRLF in the
// readable region at or after `from`, or -1 if there is none. from defaults
// to 0 when negative.
func (b *Buffer) FindCRLF(from int) int {
	if from < 0 {
		from = 0
	}
	readable := b.Peek()
	if from > len(readable) {
		return -1
	}
	i := bytes.Index(readable[from:], crlf)
	if i < 0 {
		return -1
	}
	return from + i
}

// ReadFromFD performs a scatter read: the writable region plus a 64 KiB
// stack scratch buffer, via readv(2), so a single syscall can consume far
// more than the buffer's current writable window without having to
// overestimate capacity up front. Returns the number of bytes read and any
// OS error (excluding EINTR, which is retried internally).
func (b *Buffer) ReadFromFD(fd int) (int, error) {
	var extra [scratchReadSize]byte
	writable := b.WritableBytes()

	iov := make([]unix.Iovec, 1, 2)
	iov[0] = unix.Iovec{Base: &b.buf[b.w]}
	iov[0].SetLen(writable)
	iov = append(iov, unix.Iovec{Base: &extra[0]})
	iov[1].SetLen(len(extra))

	var n int
	var err error
	for {
		r1, _, errno := unix.Syscall(unix.SYS_READV, uintptr(fd), uintptr(unsafe.Pointer(&iov[0])), uintptr(len(iov)))
		n = int(r1)
		if errno == unix.EINTR {
			continue
		}
		if errno != 0 {
			err = errno
		}
		break
	}
	if n < 0 {
		n = 0
	}
	if err != nil {
		return n, err
	}

	if n <= writable {
		b.w += n
	} else {
		b.w = len(b.buf)
		b.Append(extra[:n-writable])
	}
	return n, nil
}

// ensureWritable grows or compacts the backing array so at least `need`
// bytes are writable. If writable+prependable-floor already covers need, the
// readable bytes are slid down to the prepend floor; otherwise a bigger
// backing array is allocated and the readable bytes are copied across.
func (b *Buffer) ensureWritable(need int) {
	if b.WritableBytes() >= need {
		return
	}
	if b.WritableBytes()+b.PrependableBytes()-prependFloor >= need {
		b.compact()
		return
	}
	readable := b.ReadableBytes()
	next := bMalloc(b.w + need)
	copy(next, b.buf[:b.w])
	bFree(b.buf)
	b.buf = next
	_ = readable // readable bytes preserved verbatim: only the array grew
}

// compact slides the readable bytes down to the prepend floor, reclaiming
// both already-retrieved prepend space and the gap the read cursor left
// behind.
func (b *Buffer) compact() {
	readable := b.ReadableBytes()
	copy(b.buf[prependFloor:], b.buf[b.r:b.w])
	b.r = prependFloor
	b.w = b.r + readable
}
