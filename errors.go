package nex

import "errors"

// Sentinel errors surfaced by the core. I/O failures that the reactor can
// recover from (EPIPE, ECONNRESET, EMFILE, ...) are never returned to the
// caller directly -- they are folded into the connection close path or into
// the acceptor's EMFILE recovery instead. These are the ones a caller of the
// public API can actually observe.
var (
	// ErrNotConnected is returned by TcpConnection.Send when the connection
	// is not in the Connected state.
	ErrNotConnected = errors.New("nex: connection is not connected")

	// ErrInvalidAddr is returned by listen-address parsing.
	ErrInvalidAddr = errors.New("nex: invalid listen address")

	// ErrTimerNotFound is returned by TimerManager.cancel/EventLoop.CancelTimer
	// for an id that is unknown, already fired, or already canceled.
	ErrTimerNotFound = errors.New("nex: timer not found")
)
