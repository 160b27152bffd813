package webclient

import (
	"net/http"
	"time"
)

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
	// FollowRedirects lets the backend chase 3xx responses. When false the
	// first response is returned as-is.
	FollowRedirects bool
}

type Response struct {
	Request *Request
	// Headers is the canonicalized header map.
	Headers http.Header
	// Fields are the header lines as received, in wire order with the
	// original name case. Nil when the backend could not capture them.
	Fields []HeaderField
	// RawStatus is the status line as received, when captured.
	RawStatus  string
	Body       []byte
	StatusCode int
	// Status is the reason phrase form, e.g. "200 OK".
	Status string
	// Proto is the protocol version, e.g. "HTTP/1.1".
	Proto string
	// FinalURL is the URL that produced this response after redirects.
	FinalURL  string
	FetchedAt time.Time
}

// StatusLine renders the response status the way it appears on the wire.
func (r *Response) StatusLine() string {
	if r.RawStatus != "" {
		return r.RawStatus
	}
	if r.Proto == "" {
		return r.Status
	}
	return r.Proto + " " + r.Status
}
