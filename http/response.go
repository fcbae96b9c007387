package http

import (
	"strconv"

	"github.com/shaovie/nex"
)

// StatusCode is an HTTP response status.
type StatusCode int

const (
	StatusOK                  StatusCode = 200
	StatusMovedPermanently    StatusCode = 301
	StatusBadRequest          StatusCode = 400
	StatusForbidden           StatusCode = 403
	StatusNotFound            StatusCode = 404
	StatusInternalServerError StatusCode = 500
)

// reasonPhrases covers the status codes this package's callers are
// expected to actually send; anything else falls back to "" in the status
// line, which is valid HTTP (the phrase is advisory only).
var reasonPhrases = map[StatusCode]string{
	StatusOK:                  "OK",
	StatusMovedPermanently:    "Moved Permanently",
	StatusBadRequest:          "Bad Request",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusInternalServerError: "Internal Server Error",
}

// Response builds a single HTTP/1.x response to append to a connection's
// output buffer.
type Response struct {
	StatusCode      StatusCode
	StatusMessage   string
	Headers         map[string]string
	Body            string
	CloseConnection bool
}

// NewResponse returns a Response pre-filled with the standard reason
// phrase for code, if known.
func NewResponse(code StatusCode) *Response {
	return &Response{
		StatusCode:    code,
		StatusMessage: reasonPhrases[code],
		Headers:       make(map[string]string),
	}
}

func (r *Response) SetContentType(t string) { r.Headers["Content-Type"] = t }
func (r *Response) AddHeader(key, value string) { r.Headers[key] = value }

// AppendTo writes the status line, headers, and body to output in wire
// format. Content-Length is computed from Body and added automatically
// unless CloseConnection is set, matching the convention that a connection
// being closed doesn't need a length the peer can already infer from EOF.
func (r *Response) AppendTo(output *nex.Buffer) {
	output.Append([]byte("HTTP/1.1 "))
	output.Append([]byte(strconv.Itoa(int(r.StatusCode))))
	output.Append([]byte(" "))
	output.Append([]byte(r.StatusMessage))
	output.Append([]byte("\r\n"))

	if r.CloseConnection {
		output.Append([]byte("Connection: close\r\n"))
	} else {
		output.Append([]byte("Content-Length: "))
		output.Append([]byte(strconv.Itoa(len(r.Body))))
		output.Append([]byte("\r\n"))
		output.Append([]byte("Connection: Keep-Alive\r\n"))
	}

	for k, v := range r.Headers {
		output.Append([]byte(k))
		output.Append([]byte(": "))
		output.Append([]byte(v))
		output.Append([]byte("\r\n"))
	}

	output.Append([]byte("\r\n"))
	output.Append([]byte(r.Body))
}
