package nex

import (
	"net"
	"strconv"
	"strings"

	"github.com/shaovie/nex/netfd"
	"golang.org/x/sys/unix"
)

// InetAddress is an IPv4 endpoint. The zero value is 0.0.0.0:0.
type InetAddress struct {
	ip   net.IP
	port uint16
}

// NewInetAddress parses "host:port" or ":port" (host defaults to
// 0.0.0.0). Returns ErrInvalidAddr if the string isn't a valid IPv4
// endpoint.
func NewInetAddress(addr string) (InetAddress, error) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return InetAddress{}, ErrInvalidAddr
	}
	if host == "" {
		host = "0.0.0.0"
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return InetAddress{}, ErrInvalidAddr
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return InetAddress{}, ErrInvalidAddr
	}
	return InetAddress{ip: ip.To4(), port: uint16(port)}, nil
}

// LoopbackInetAddress returns 127.0.0.1:port.
func LoopbackInetAddress(port uint16) InetAddress {
	return InetAddress{ip: net.IPv4(127, 0, 0, 1).To4(), port: port}
}

func (a InetAddress) IP() string { return a.ip.String() }
func (a InetAddress) Port() uint16 { return a.port }
func (a InetAddress) String() string {
	return net.JoinHostPort(a.ip.String(), strconv.Itoa(int(a.port)))
}

func (a InetAddress) sockaddr() *unix.SockaddrInet4 {
	sa := &unix.SockaddrInet4{Port: int(a.port)}
	copy(sa.Addr[:], a.ip.To4())
	return sa
}

func inetAddressFromSockaddr(sa unix.Sockaddr) InetAddress {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, sa.Addr[:])
		return InetAddress{ip: ip, port: uint16(sa.Port)}
	default:
		return InetAddress{}
	}
}

// socket is a thin RAII wrapper around a nonblocking IPv4 stream socket fd:
// it owns the fd and closes it when released, and centralizes the handful
// of setsockopt/bind/listen/accept calls every listening or accepted
// connection needs.
type socket struct {
	fd int
}

func newSocket() (*socket, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}
	return &socket{fd: fd}, nil
}

func (s *socket) close() error { return unix.Close(s.fd) }

func (s *socket) setReuseAddr(on bool) error { return netfd.SetReuseAddr(s.fd, on) }
func (s *socket) setReusePort(on bool) error { return netfd.SetReusePort(s.fd, on) }

func (s *socket) bind(addr InetAddress) error {
	return unix.Bind(s.fd, addr.sockaddr())
}

func (s *socket) listen(backlog int) error {
	return unix.Listen(s.fd, backlog)
}

// accept returns a nonblocking connected fd and the peer address, or an
// error (including EAGAIN/EMFILE, which the caller is expected to handle).
func (s *socket) accept() (int, InetAddress, error) {
	connFd, sa, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, InetAddress{}, err
	}
	return connFd, inetAddressFromSockaddr(sa), nil
}

func (s *socket) shutdownWrite() error {
	return unix.Shutdown(s.fd, unix.SHUT_WR)
}
