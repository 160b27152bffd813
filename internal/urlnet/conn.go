package urlnet

import (
	"net/http"
	"net/url"

	"github.com/raysh454/headprobe/internal/webclient"
)

// Conn is the connection configuration a RequestSpec shapes during the
// build phase, before anything touches the network.
type Conn struct {
	URL    *url.URL
	Method string

	// DoInput enables the receive phase.
	DoInput bool
	// DoOutput enables the send phase. Without it no request body is
	// transmitted even if the send hook wrote one.
	DoOutput bool
	// UseCaches false asks intermediaries not to serve a cached response.
	UseCaches bool

	FollowRedirects bool
	Header          http.Header
}

func newConn(u *url.URL) *Conn {
	return &Conn{
		URL:       u,
		Method:    http.MethodGet,
		DoInput:   true,
		UseCaches: true,
		Header:    http.Header{},
	}
}

// IsHTTP reports whether the connection speaks HTTP.
func (c *Conn) IsHTTP() bool {
	return c.URL.Scheme == "http" || c.URL.Scheme == "https"
}

func (c *Conn) request(body []byte) *webclient.Request {
	h := c.Header.Clone()
	if !c.UseCaches {
		h.Set("Cache-Control", "no-cache")
		h.Set("Pragma", "no-cache")
	}
	req := &webclient.Request{
		Method:          c.Method,
		URL:             c.URL.String(),
		Headers:         h,
		FollowRedirects: c.FollowRedirects,
	}
	if c.DoOutput {
		req.Body = body
	}
	return req
}
