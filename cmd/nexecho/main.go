// Command nexecho is a minimal TCP echo server: every byte read from a
// connection is written straight back to it.
package main

import (
	"flag"
	"runtime"

	"github.com/shaovie/nex"
	"github.com/shaovie/nex/evlog"
	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	reusePort := flag.Bool("reuseport", false, "SO_REUSEPORT the listening socket")
	flag.Parse()

	log := evlog.New(zap.InfoLevel)
	defer log.Sync()

	loop, err := nex.NewEventLoop(log)
	if err != nil {
		log.Fatal("new event loop", zap.Error(err))
	}

	listenAddr, err := nex.NewInetAddress(*addr)
	if err != nil {
		log.Fatal("parse listen address", zap.Error(err))
	}

	srv, err := nex.NewTcpServer(loop, listenAddr, "echo", log,
		nex.ReusePort(*reusePort),
		nex.ThreadNum(runtime.NumCPU()),
	)
	if err != nil {
		log.Fatal("new tcp server", zap.Error(err))
	}
	srv.SetConnectionCallback(func(c *nex.TcpConnection) {
		if c.Connected() {
			c.SetNoDelay(true)
			log.Info("connected", zap.String("conn", c.Name()), zap.String("peer", c.PeerAddr().String()))
		} else {
			log.Info("disconnected", zap.String("conn", c.Name()))
		}
	})
	srv.SetMessageCallback(func(c *nex.TcpConnection, buf *nex.Buffer) {
		c.Send(buf.Peek())
		buf.RetrieveAll()
	})

	if err := srv.Start(); err != nil {
		log.Fatal("start server", zap.Error(err))
	}
	log.Info("nexecho listening", zap.String("addr", *addr))
	if err := loop.Loop(); err != nil {
		log.Fatal("loop", zap.Error(err))
	}
}
