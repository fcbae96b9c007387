package nex

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// defaultListenBacklog is the pending-connection queue length passed to
// listen(2); SOMAXCONN would follow the kernel's own ceiling but it varies
// by distro, so a fixed generous default is more predictable across hosts.
const defaultListenBacklog = 1024

// Acceptor owns a listening socket and hands off every accepted connection
// via its callback. On EMFILE it plays the idle-fd dance: close a reserved
// fd, accept the pending connection just to immediately drop it (freeing a
// slot), then reopen the reserved fd -- this lets the kernel's listen
// backlog keep draining instead of spinning on EMFILE on every poll, and
// gives the rejected peer a clean connect-then-close instead of outright
// ECONNREFUSED.
type Acceptor struct {
	loop          *EventLoop
	sock          *socket
	channel       *Channel
	newConnection func(fd int, peer InetAddress)
	listening     bool
	idleFd        int
	backlog       int
	log           *zap.Logger
}

// NewAcceptor opens (but does not yet listen on) a socket bound to addr.
func NewAcceptor(loop *EventLoop, addr InetAddress, reusePort bool, backlog int, log *zap.Logger) (*Acceptor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sock, err := newSocket()
	if err != nil {
		return nil, err
	}
	if err := sock.setReuseAddr(true); err != nil {
		sock.close()
		return nil, err
	}
	if reusePort {
		if err := sock.setReusePort(true); err != nil {
			sock.close()
			return nil, err
		}
	}
	if err := sock.bind(addr); err != nil {
		sock.close()
		return nil, err
	}
	idleFd, err := unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		sock.close()
		return nil, err
	}

	if backlog <= 0 {
		backlog = defaultListenBacklog
	}
	a := &Acceptor{
		loop:    loop,
		sock:    sock,
		idleFd:  idleFd,
		backlog: backlog,
		log:     log,
	}
	a.channel = newChannel(loop, sock.fd)
	a.channel.SetReadCallback(a.handleRead)
	return a, nil
}

// SetNewConnectionCallback installs the handler invoked on the loop's
// goroutine for every accepted connection.
func (a *Acceptor) SetNewConnectionCallback(fn func(fd int, peer InetAddress)) {
	a.newConnection = fn
}

func (a *Acceptor) Listening() bool { return a.listening }

// Listen starts listening and arms read interest. Must be called from the
// acceptor's loop, or before that loop has started running.
func (a *Acceptor) Listen() error {
	a.listening = true
	if err := a.sock.listen(a.backlog); err != nil {
		return err
	}
	a.channel.EnableReading()
	return nil
}

// Close tears down the acceptor's channel and both fds.
func (a *Acceptor) Close() {
	a.channel.DisableAll()
	a.channel.Remove()
	unix.Close(a.idleFd)
	a.sock.close()
}

func (a *Acceptor) handleRead() {
	connFd, peer, err := a.sock.accept()
	if err == nil {
		if a.newConnection != nil {
			a.newConnection(connFd, peer)
		} else {
			unix.Close(connFd)
		}
		return
	}

	a.log.Error("accept failed", zap.Error(err))
	if err == unix.EMFILE {
		unix.Close(a.idleFd)
		a.idleFd, _, _ = a.sock.accept()
		unix.Close(a.idleFd)
		a.idleFd, _ = unix.Open("/dev/null", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	}
}
