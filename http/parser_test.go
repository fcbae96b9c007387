package http

import (
	"testing"

	"github.com/shaovie/nex"
	"github.com/stretchr/testify/require"
)

func TestParserSimpleGet(t *testing.T) {
	buf := nex.NewBuffer()
	buf.Append([]byte("GET /index.html HTTP/1.1\r\nHost: example.com\r\n\r\n"))

	p := NewParser()
	ok := p.Parse(buf)
	require.True(t, ok)
	require.True(t, p.GotAll())

	req := p.Request()
	require.Equal(t, Get, req.Method)
	require.Equal(t, "/index.html", req.Path)
	require.Equal(t, HTTP11, req.Version)
	require.Equal(t, "example.com", req.Header("Host"))
}

func TestParserWithBody(t *testing.T) {
	buf := nex.NewBuffer()
	body := `{"a":1}`
	buf.Append([]byte("POST /api HTTP/1.1\r\nContent-Length: " +
		"7\r\n\r\n" + body))

	p := NewParser()
	require.True(t, p.Parse(buf))
	require.True(t, p.GotAll())
	require.Equal(t, body, p.Request().Body)
}

func TestParserIncrementalArrival(t *testing.T) {
	buf := nex.NewBuffer()
	p := NewParser()

	buf.Append([]byte("GET /a"))
	require.True(t, p.Parse(buf))
	require.False(t, p.GotAll())

	buf.Append([]byte(" HTTP/1.1\r\n\r\n"))
	require.True(t, p.Parse(buf))
	require.True(t, p.GotAll())
	require.Equal(t, "/a", p.Request().Path)
}

func TestParserRejectsMalformedMethod(t *testing.T) {
	buf := nex.NewBuffer()
	buf.Append([]byte("BOGUS / HTTP/1.1\r\n\r\n"))

	p := NewParser()
	require.False(t, p.Parse(buf))
}

func TestParserResetReusesForNextRequest(t *testing.T) {
	buf := nex.NewBuffer()
	buf.Append([]byte("GET /first HTTP/1.1\r\n\r\n"))

	p := NewParser()
	require.True(t, p.Parse(buf))
	require.Equal(t, "/first", p.Request().Path)

	p.Reset()
	buf.Append([]byte("GET /second HTTP/1.1\r\n\r\n"))
	require.True(t, p.Parse(buf))
	require.Equal(t, "/second", p.Request().Path)
}

func TestResponseAppendTo(t *testing.T) {
	resp := NewResponse(StatusOK)
	resp.SetContentType("text/plain")
	resp.Body = "hi"

	buf := nex.NewBuffer()
	resp.AppendTo(buf)

	out := string(buf.Peek())
	require.Contains(t, out, "HTTP/1.1 200 OK\r\n")
	require.Contains(t, out, "Content-Type: text/plain\r\n")
	require.Contains(t, out, "Content-Length: 2\r\n")
	require.Contains(t, out, "\r\n\r\nhi")
}
