package nex

import (
	"sync/atomic"

	"github.com/shaovie/nex/netfd"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	connConnecting = iota
	connConnected
	connDisconnecting
	connDisconnected
)

// defaultHighWaterMark is the output-buffer size past which
// HighWaterMarkCallback fires, so an application can throttle a producer
// that is writing faster than the peer can drain.
const defaultHighWaterMark = 64 * 1024 * 1024

// TcpConnection wraps one connected socket: its Channel, input/output
// Buffers, and the state machine moving it from Connecting through
// Connected to Disconnected. Every method not documented otherwise must
// only be called from the connection's own loop.
type TcpConnection struct {
	noCopy

	name string
	loop *EventLoop

	sock    *socket
	channel *Channel

	state atomic.Int32

	local  InetAddress
	peer   InetAddress

	inputBuffer  *Buffer
	outputBuffer *Buffer

	highWaterMark int
	faultError    bool

	ctx context

	connectionCallback    func(*TcpConnection)
	messageCallback       func(*TcpConnection, *Buffer)
	writeCompleteCallback func(*TcpConnection)
	highWaterMarkCallback func(*TcpConnection, int)
	closeCallback         func(*TcpConnection)

	log *zap.Logger
}

func newTcpConnection(loop *EventLoop, name string, fd int, local, peer InetAddress, log *zap.Logger) *TcpConnection {
	if log == nil {
		log = zap.NewNop()
	}
	c := &TcpConnection{
		name:          name,
		loop:          loop,
		sock:          &socket{fd: fd},
		local:         local,
		peer:          peer,
		inputBuffer:   NewBuffer(),
		outputBuffer:  NewBuffer(),
		highWaterMark: defaultHighWaterMark,
		log:           log,
	}
	c.state.Store(connConnecting)
	c.channel = newChannel(loop, fd)
	c.channel.SetReadCallback(c.handleRead)
	c.channel.SetWriteCallback(c.handleWrite)
	c.channel.SetCloseCallback(c.handleClose)
	c.channel.SetErrorCallback(c.handleError)
	return c
}

func (c *TcpConnection) Name() string          { return c.name }
func (c *TcpConnection) Loop() *EventLoop      { return c.loop }
func (c *TcpConnection) LocalAddr() InetAddress { return c.local }
func (c *TcpConnection) PeerAddr() InetAddress  { return c.peer }
func (c *TcpConnection) Connected() bool       { return c.state.Load() == connConnected }
func (c *TcpConnection) Disconnected() bool    { return c.state.Load() == connDisconnected }

func (c *TcpConnection) Context() *context { return &c.ctx }

func (c *TcpConnection) SetConnectionCallback(fn func(*TcpConnection))       { c.connectionCallback = fn }
func (c *TcpConnection) SetMessageCallback(fn func(*TcpConnection, *Buffer)) { c.messageCallback = fn }
func (c *TcpConnection) SetWriteCompleteCallback(fn func(*TcpConnection))    { c.writeCompleteCallback = fn }
func (c *TcpConnection) SetHighWaterMarkCallback(fn func(*TcpConnection, int), mark int) {
	c.highWaterMarkCallback = fn
	c.highWaterMark = mark
}
func (c *TcpConnection) SetCloseCallback(fn func(*TcpConnection)) { c.closeCallback = fn }

func (c *TcpConnection) SetNoDelay(on bool) error   { return netfd.SetNoDelay(c.sock.fd, on) }
func (c *TcpConnection) SetKeepAlive(idle, interval, times int) error {
	return netfd.SetKeepAlive(c.sock.fd, idle, interval, times)
}

// Send queues data for the peer, returning ErrNotConnected if the
// connection is not currently Connected. Safe to call from any goroutine:
// if called off the connection's loop it hops over via RunInLoop.
func (c *TcpConnection) Send(data []byte) error {
	if c.state.Load() != connConnected {
		return ErrNotConnected
	}
	if c.loop.IsInLoopThread() {
		c.sendInLoop(data)
	} else {
		buf := append([]byte(nil), data...)
		c.loop.RunInLoop(func() { c.sendInLoop(buf) })
	}
	return nil
}

func (c *TcpConnection) sendInLoop(data []byte) {
	if c.state.Load() == connDisconnected {
		return
	}

	var nwrote int
	var faultErr bool
	remaining := len(data)

	if !c.channel.IsWriting() && c.outputBuffer.ReadableBytes() == 0 {
		n, err := netfd.Write(c.sock.fd, data)
		if n >= 0 {
			nwrote = n
			remaining = len(data) - n
			if remaining == 0 && c.writeCompleteCallback != nil {
				c.loop.QueueInLoop(func() { c.writeCompleteCallback(c) })
			}
		} else {
			nwrote = 0
			if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
				if err == unix.EPIPE || err == unix.ECONNRESET {
					faultErr = true
				}
			}
		}
	}

	if !faultErr && remaining > 0 {
		oldLen := c.outputBuffer.ReadableBytes()
		if oldLen+remaining >= c.highWaterMark && oldLen < c.highWaterMark && c.highWaterMarkCallback != nil {
			c.loop.QueueInLoop(func() { c.highWaterMarkCallback(c, oldLen+remaining) })
		}
		c.outputBuffer.Append(data[nwrote:])
		if !c.channel.IsWriting() {
			c.channel.EnableWriting()
		}
	}
}

// Shutdown half-closes the write side once any queued output has drained.
func (c *TcpConnection) Shutdown() {
	if c.state.CompareAndSwap(connConnected, connDisconnecting) {
		c.loop.RunInLoop(c.shutdownInLoop)
	}
}

func (c *TcpConnection) shutdownInLoop() {
	if !c.channel.IsWriting() {
		c.sock.shutdownWrite()
	}
}

// connectEstablished transitions Connecting -> Connected, ties the
// channel's dispatch to this connection's liveness, arms read interest, and
// fires the connection callback. Must run on the connection's loop.
func (c *TcpConnection) connectEstablished() {
	c.state.Store(connConnected)
	c.channel.Tie(func() bool { return c.state.Load() != connDisconnected })
	c.channel.EnableReading()
	if c.connectionCallback != nil {
		c.connectionCallback(c)
	}
}

// connectDestroyed tears the connection fully down: fires the connection
// callback one last time if it was still Connected or Disconnecting, then
// always removes the channel from the poller. Must run on the connection's
// loop.
func (c *TcpConnection) connectDestroyed() {
	if state := c.state.Load(); state == connConnected || state == connDisconnecting {
		c.state.Store(connDisconnected)
		c.channel.DisableAll()
		if c.connectionCallback != nil {
			c.connectionCallback(c)
		}
	}
	c.channel.Remove()
	c.sock.close()
}

func (c *TcpConnection) handleRead() {
	n, err := c.inputBuffer.ReadFromFD(c.sock.fd)
	switch {
	case n > 0:
		if c.messageCallback != nil {
			c.messageCallback(c, c.inputBuffer)
		}
	case n == 0 && err == nil:
		c.handleClose()
	default:
		c.log.Error("read failed", zap.String("conn", c.name), zap.Error(err))
		c.handleError()
	}
}

func (c *TcpConnection) handleWrite() {
	if !c.channel.IsWriting() {
		return
	}
	n, err := netfd.Write(c.sock.fd, c.outputBuffer.Peek())
	if n > 0 {
		c.outputBuffer.Retrieve(n)
		if c.outputBuffer.ReadableBytes() == 0 {
			c.channel.DisableWriting()
			if c.writeCompleteCallback != nil {
				c.loop.QueueInLoop(func() { c.writeCompleteCallback(c) })
			}
			if c.state.Load() == connDisconnecting {
				c.shutdownInLoop()
			}
		}
		return
	}
	if err != nil && err != unix.EAGAIN && err != unix.EWOULDBLOCK {
		c.log.Error("write failed", zap.String("conn", c.name), zap.Error(err))
	}
}

func (c *TcpConnection) handleClose() {
	state := c.state.Load()
	if state != connConnected && state != connDisconnecting {
		return
	}
	// state deliberately left alone here: connectDestroyed's check for
	// Connected/Disconnecting is what fires the connection callback exactly
	// once, and it needs to still see the pre-close state to do so.
	c.channel.DisableAll()
	if c.closeCallback != nil {
		c.closeCallback(c)
	}
}

func (c *TcpConnection) handleError() {
	if err := netfd.SocketError(c.sock.fd); err != nil {
		c.log.Error("socket error", zap.String("conn", c.name), zap.Error(err))
	}
}
