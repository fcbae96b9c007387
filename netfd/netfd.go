// Package netfd wraps the raw socket-option and fd-level syscalls used by
// the reactor, isolating golang.org/x/sys/unix from the rest of the module.
package netfd

import (
	"errors"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// Read retries on EINTR. Zero return with nil error means the peer closed.
func Read(fd int, buf []byte) (n int, err error) {
	for {
		n, err = unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		break
	}
	return
}

func Write(fd int, buf []byte) (n int, err error) {
	for {
		n, err = unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		break
	}
	return
}

func Close(fd int) error {
	return unix.Close(fd)
}

func ShutdownWrite(fd int) error {
	return unix.Shutdown(fd, unix.SHUT_WR)
}

func sockaddrString(sa unix.Sockaddr) string {
	ip := net.IP{}
	port := 0
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip = net.IP(sa.Addr[:])
		port = sa.Port
	case *unix.SockaddrInet6:
		ip = net.IP(sa.Addr[:])
		port = sa.Port
	default:
		return ""
	}
	return net.JoinHostPort(ip.String(), strconv.Itoa(port))
}

// LocalAddr returns "ip:port", or "" if fd is not a connected socket.
func LocalAddr(fd int) string {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}

// RemoteAddr returns "ip:port", or "" if fd is not a connected socket.
func RemoteAddr(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return ""
	}
	return sockaddrString(sa)
}

func SetReuseAddr(fd int, on bool) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(on)); err != nil {
		return errors.New("netfd: SO_REUSEADDR: " + err.Error())
	}
	return nil
}

// SetReusePort sets SO_REUSEPORT. The unix package only defines that
// constant on platforms that support it, so this does not compile
// elsewhere.
func SetReusePort(fd int, on bool) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolToInt(on)); err != nil {
		return errors.New("netfd: SO_REUSEPORT: " + err.Error())
	}
	return nil
}

// SetSendBuffSize must be called after accept/connect. The kernel enforces
// an upper bound of net.core.wmem_max.
func SetSendBuffSize(fd, bytes int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, bytes); err != nil {
		return errors.New("netfd: SO_SNDBUF: " + err.Error())
	}
	return nil
}

// SetRecvBuffSize must be called after accept/connect. The kernel enforces
// an upper bound of net.core.rmem_max.
func SetRecvBuffSize(fd, bytes int) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, bytes); err != nil {
		return errors.New("netfd: SO_RCVBUF: " + err.Error())
	}
	return nil
}

// SetNoDelay toggles Nagle's algorithm. on=true disables coalescing of small
// writes, trading bandwidth for latency.
func SetNoDelay(fd int, on bool) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolToInt(on)); err != nil {
		return errors.New("netfd: TCP_NODELAY: " + err.Error())
	}
	return nil
}

// SetKeepAlive enables TCP keepalive probing. idle, interval and times are
// all in seconds: idle is how long the connection must be silent before the
// first probe, interval is the gap between probes, times is how many
// unanswered probes before the connection is declared dead.
func SetKeepAlive(fd, idle, interval, times int) error {
	if idle < 0 || interval < 1 || times < 1 {
		return errors.New("netfd: keepalive parameters invalid")
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); err != nil {
		return errors.New("netfd: SO_KEEPALIVE: " + err.Error())
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, idle); err != nil {
		return errors.New("netfd: TCP_KEEPIDLE: " + err.Error())
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, interval); err != nil {
		return errors.New("netfd: TCP_KEEPINTVL: " + err.Error())
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPCNT, times); err != nil {
		return errors.New("netfd: TCP_KEEPCNT: " + err.Error())
	}
	return nil
}

// SetQuickACK disables delayed ACKs. The kernel resets this flag after every
// read/write, so it is only ever a one-shot hint.
func SetQuickACK(fd int, on bool) error {
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, boolToInt(on)); err != nil {
		return errors.New("netfd: TCP_QUICKACK: " + err.Error())
	}
	return nil
}

// SocketError reads and clears SO_ERROR, the mechanism epoll uses to report
// a failed connect() or other asynchronous socket error.
func SocketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
