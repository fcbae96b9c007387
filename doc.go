// Package nex implements a single-host, multi-threaded TCP networking
// runtime built around the Reactor pattern, plus the minimal HTTP/1.x
// request framing that rides on top of it.
//
// The core is four tightly coupled pieces: a readiness-based event
// demultiplexer (Poller, epoll-backed), a single-threaded cooperative
// EventLoop combining I/O dispatch, a pending-task queue for cross-thread
// hand-off, and a timer wheel; TcpConnection, which owns per-connection
// buffers and the connect/disconnect/shutdown state machine; and Acceptor +
// EventLoopThreadPool, which accept connections and round-robin them across
// worker loops.
//
// The package builds and runs only on Linux. poller_linux.go (epoll) and
// eventloop_linux.go (eventfd wakeup) carry a `//go:build linux`
// constraint, and their non-Linux counterparts are a poller stub whose
// constructor always fails (poller_other.go) and a self-pipe wakeup
// (eventloop_pipe.go). Other files have no build constraint but use
// Linux-only unix symbols (epoll event bits in channel.go, gettid in
// eventloop.go), so the package as a whole does not compile elsewhere.
package nex
