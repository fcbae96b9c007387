package http

import (
	"strconv"
	"strings"

	"github.com/shaovie/nex"
)

// parseState tracks progress through a single request: the request line,
// then headers, then (if Content-Length says so) the body.
type parseState int

const (
	expectRequestLine parseState = iota
	expectHeaders
	expectBody
	gotAll
)

// Parser incrementally parses HTTP/1.x requests out of a nex.Buffer as
// bytes arrive. One Parser is meant to be reused across requests on a
// keep-alive connection: call Reset after consuming a completed request.
type Parser struct {
	state         parseState
	request       Request
	contentLength int
}

func NewParser() *Parser {
	p := &Parser{request: newRequest()}
	return p
}

// Reset prepares the parser for the next request on the same connection.
func (p *Parser) Reset() {
	p.state = expectRequestLine
	p.request.reset()
	p.contentLength = 0
}

// GotAll reports whether a complete request has been parsed.
func (p *Parser) GotAll() bool { return p.state == gotAll }

// Request returns the request parsed so far (only complete once GotAll is
// true).
func (p *Parser) Request() *Request { return &p.request }

// Parse consumes as much of buf as forms complete lines/body, advancing
// state. Returns false if the data seen so far is malformed; the caller
// should drop the connection in that case. Safe to call repeatedly as more
// bytes arrive -- each call picks up where the last left off.
func (p *Parser) Parse(buf *nex.Buffer) bool {
	for {
		switch p.state {
		case expectRequestLine:
			idx := buf.FindCRLF(0)
			if idx < 0 {
				return true
			}
			line := string(buf.Peek()[:idx])
			if !p.parseRequestLine(line) {
				return false
			}
			buf.RetrieveUntil(idx + 2)
			p.state = expectHeaders

		case expectHeaders:
			idx := buf.FindCRLF(0)
			if idx < 0 {
				return true
			}
			line := string(buf.Peek()[:idx])
			if line == "" {
				if p.contentLength > 0 {
					p.state = expectBody
				} else {
					p.state = gotAll
				}
				buf.RetrieveUntil(idx + 2)
				if p.state == gotAll {
					return true
				}
				continue
			}
			colon := strings.IndexByte(line, ':')
			if colon < 0 {
				buf.RetrieveUntil(idx + 2)
				continue
			}
			field := line[:colon]
			value := strings.TrimSpace(line[colon+1:])
			p.request.addHeader(field, value)
			if field == "Content-Length" {
				if n, err := strconv.Atoi(value); err == nil {
					p.contentLength = n
				}
			}
			buf.RetrieveUntil(idx + 2)

		case expectBody:
			if buf.ReadableBytes() < p.contentLength {
				return true
			}
			p.request.Body = buf.RetrieveAsString(p.contentLength)
			p.state = gotAll
			return true

		case gotAll:
			return true
		}
	}
}

func (p *Parser) parseRequestLine(line string) bool {
	sp1 := strings.IndexByte(line, ' ')
	if sp1 < 0 {
		return false
	}
	method := methodFromString(line[:sp1])
	if method == Invalid {
		return false
	}
	rest := line[sp1+1:]
	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return false
	}
	path := rest[:sp2]
	versionStr := rest[sp2+1:]

	var version Version
	switch versionStr {
	case "HTTP/1.0":
		version = HTTP10
	case "HTTP/1.1":
		version = HTTP11
	default:
		return false
	}

	p.request.Method = method
	p.request.Path = path
	p.request.Version = version
	return true
}
