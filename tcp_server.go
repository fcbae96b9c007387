package nex

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shaovie/nex/netfd"
	"go.uber.org/zap"
)

// TcpServer accepts connections on one loop and distributes them round-
// robin across a pool of I/O loops, wiring every TcpConnection's callbacks
// before handing it established life on its assigned loop.
type TcpServer struct {
	loop     *EventLoop
	name     string
	ipPort   string
	acceptor *Acceptor
	pool     *EventLoopThreadPool
	opts     *ServerOptions
	log      *zap.Logger

	connectionCallback    func(*TcpConnection)
	messageCallback       func(*TcpConnection, *Buffer)
	writeCompleteCallback func(*TcpConnection)
	threadInitCallback    func(*EventLoop)

	started    atomic.Bool
	nextConnID int

	mu          sync.Mutex
	connections map[string]*TcpConnection
}

// NewTcpServer creates a server listening on addr once Start is called. The
// acceptor and, with zero worker threads, every connection too, run on
// loop.
func NewTcpServer(loop *EventLoop, addr InetAddress, name string, log *zap.Logger, opts ...ServerOption) (*TcpServer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := defaultServerOptions()
	for _, opt := range opts {
		opt(o)
	}

	acc, err := NewAcceptor(loop, addr, o.reusePort, o.listenBacklog, log)
	if err != nil {
		return nil, err
	}
	s := &TcpServer{
		loop:        loop,
		name:        name,
		ipPort:      addr.String(),
		acceptor:    acc,
		pool:        NewEventLoopThreadPool(loop, name, log, o.maxConnPerLoop),
		opts:        o,
		log:         log,
		nextConnID:  1,
		connections: make(map[string]*TcpConnection),
	}
	acc.SetNewConnectionCallback(s.newConnection)
	return s, nil
}

func (s *TcpServer) SetConnectionCallback(fn func(*TcpConnection))       { s.connectionCallback = fn }
func (s *TcpServer) SetMessageCallback(fn func(*TcpConnection, *Buffer)) { s.messageCallback = fn }
func (s *TcpServer) SetWriteCompleteCallback(fn func(*TcpConnection))    { s.writeCompleteCallback = fn }
func (s *TcpServer) SetThreadInitCallback(fn func(*EventLoop))           { s.threadInitCallback = fn }

func (s *TcpServer) IPPort() string   { return s.ipPort }
func (s *TcpServer) Name() string     { return s.name }
func (s *TcpServer) Loop() *EventLoop { return s.loop }

// Start is idempotent: only the first call spins up the thread pool and
// arms the acceptor. It returns once the acceptor is listening, with the
// listen error if any: before the server's loop is running (or on the
// loop's own goroutine) it calls Listen directly; while the loop runs on
// another goroutine it queues Listen onto the loop and waits for it.
func (s *TcpServer) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.pool.Start(s.opts.threadNum, s.threadInitCallback); err != nil {
		return err
	}
	if s.loop.tid.Load() == 0 || s.loop.IsInLoopThread() {
		return s.acceptor.Listen()
	}
	listenErr := make(chan error, 1)
	s.loop.QueueInLoop(func() { listenErr <- s.acceptor.Listen() })
	return <-listenErr
}

// Stop destroys every live connection (on its own loop) and stops the
// worker pool.
func (s *TcpServer) Stop() error {
	s.mu.Lock()
	conns := make([]*TcpConnection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.loop.RunInLoop(c.connectDestroyed)
	}
	return s.pool.Stop()
}

func (s *TcpServer) newConnection(fd int, peer InetAddress) {
	ioLoop := s.pool.GetNextLoop()

	if s.opts.recvBuffSize > 0 {
		netfd.SetRecvBuffSize(fd, s.opts.recvBuffSize)
	}

	connName := fmt.Sprintf("%s-%s#%d", s.name, s.ipPort, s.nextConnID)
	s.nextConnID++

	local := InetAddress{}
	if ls := netfd.LocalAddr(fd); ls != "" {
		local, _ = NewInetAddress(ls)
	}

	conn := newTcpConnection(ioLoop, connName, fd, local, peer, s.log)
	conn.highWaterMark = s.opts.highWaterMark
	s.mu.Lock()
	s.connections[connName] = conn
	s.mu.Unlock()

	conn.SetConnectionCallback(s.connectionCallback)
	conn.SetMessageCallback(s.messageCallback)
	conn.SetWriteCompleteCallback(s.writeCompleteCallback)
	conn.SetCloseCallback(s.removeConnection)

	ioLoop.RunInLoop(conn.connectEstablished)
}

func (s *TcpServer) removeConnection(conn *TcpConnection) {
	s.loop.RunInLoop(func() { s.removeConnectionInLoop(conn) })
}

func (s *TcpServer) removeConnectionInLoop(conn *TcpConnection) {
	s.mu.Lock()
	delete(s.connections, conn.name)
	s.mu.Unlock()

	conn.loop.QueueInLoop(conn.connectDestroyed)
	s.pool.releaseConn(conn.loop)
}
