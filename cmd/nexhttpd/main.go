// Command nexhttpd is a minimal HTTP/1.x server: it parses requests off
// each connection's input buffer with the http package and serves static
// bytes from memory, offloading nothing blocking but demonstrating GoPool
// for handlers that would otherwise stall a connection's loop.
package main

import (
	"flag"
	"runtime"

	"github.com/shaovie/nex"
	"github.com/shaovie/nex/evlog"
	nexhttp "github.com/shaovie/nex/http"
	"go.uber.org/zap"
)

// connState holds the per-connection parser. The GoPool that runs
// handlers off the connection's loop is shared by all connections and
// lives in main.
type connState struct {
	parser *nexhttp.Parser
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
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

	pool := nex.NewGoPool(64, 8, 256)

	srv, err := nex.NewTcpServer(loop, listenAddr, "httpd", log,
		nex.ThreadNum(runtime.NumCPU()),
		nex.HighWaterMark(16*1024*1024),
	)
	if err != nil {
		log.Fatal("new tcp server", zap.Error(err))
	}

	srv.SetConnectionCallback(func(c *nex.TcpConnection) {
		if c.Connected() {
			c.SetNoDelay(true)
			c.Context().Set(&connState{parser: nexhttp.NewParser()})
		}
	})
	srv.SetMessageCallback(func(c *nex.TcpConnection, buf *nex.Buffer) {
		st, _ := c.Context().Get().(*connState)
		if st == nil {
			return
		}
		for {
			if !st.parser.Parse(buf) {
				c.Shutdown()
				return
			}
			if !st.parser.GotAll() {
				return
			}
			req := st.parser.Request()
			path := req.Path
			st.parser.Reset()

			pool.Go(func() {
				resp := route(path)
				c.Loop().RunInLoop(func() {
					out := nex.NewBuffer()
					resp.AppendTo(out)
					c.Send(out.Peek())
				})
			})
		}
	})

	if err := srv.Start(); err != nil {
		log.Fatal("start server", zap.Error(err))
	}
	log.Info("nexhttpd listening", zap.String("addr", *addr))
	if err := loop.Loop(); err != nil {
		log.Fatal("loop", zap.Error(err))
	}
}

func route(path string) *nexhttp.Response {
	if path != "/" {
		resp := nexhttp.NewResponse(nexhttp.StatusNotFound)
		resp.SetContentType("text/plain")
		resp.Body = "not found\n"
		return resp
	}
	resp := nexhttp.NewResponse(nexhttp.StatusOK)
	resp.SetContentType("text/plain")
	resp.Body = "hello from nexhttpd\n"
	return resp
}
