package nex

import "runtime"

// ServerOptions collects the tunables a TcpServer is built with. Built up
// via functional options rather than positional constructor arguments so
// adding a new knob never breaks existing call sites.
type ServerOptions struct {
	reusePort         bool
	listenBacklog     int
	threadNum         int
	highWaterMark     int
	maxConnPerLoop    int // 0 means unbounded
	recvBuffSize      int // ignored if 0
}

type ServerOption func(*ServerOptions)

func defaultServerOptions() *ServerOptions {
	o := &ServerOptions{
		listenBacklog: defaultListenBacklog,
		highWaterMark: defaultHighWaterMark,
	}
	cpuN := runtime.NumCPU()
	switch {
	case cpuN > 15:
		o.threadNum = cpuN - 4
	case cpuN > 3:
		o.threadNum = cpuN - 2
	default:
		o.threadNum = 1
	}
	return o
}

// ReusePort enables SO_REUSEPORT on the listening socket, letting several
// processes (or several Acceptors in this one) share the same port with the
// kernel load-balancing incoming connections across them.
func ReusePort(v bool) ServerOption {
	return func(o *ServerOptions) { o.reusePort = v }
}

// ListenBacklog sets the backlog passed to listen(2).
func ListenBacklog(n int) ServerOption {
	return func(o *ServerOptions) {
		if n > 0 {
			o.listenBacklog = n
		}
	}
}

// ThreadNum sets how many I/O worker loops the server's thread pool runs.
// Zero means every connection is handled on the server's own loop.
func ThreadNum(n int) ServerOption {
	return func(o *ServerOptions) {
		if n >= 0 {
			o.threadNum = n
		}
	}
}

// HighWaterMark sets the output-buffer size, in bytes, past which a
// connection's HighWaterMarkCallback fires.
func HighWaterMark(bytes int) ServerOption {
	return func(o *ServerOptions) {
		if bytes > 0 {
			o.highWaterMark = bytes
		}
	}
}

// MaxConnPerLoop caps how many connections a single worker loop will be
// handed before the server starts routing new ones to the next loop even
// if round-robin would otherwise pick an already-fuller one. Zero (the
// default) leaves round-robin uncapped.
func MaxConnPerLoop(n int) ServerOption {
	return func(o *ServerOptions) {
		if n > 0 {
			o.maxConnPerLoop = n
		}
	}
}

// RecvBuffSize sets SO_RCVBUF on every accepted connection's socket.
func RecvBuffSize(n int) ServerOption {
	return func(o *ServerOptions) {
		if n > 0 {
			o.recvBuffSize = n
		}
	}
}
