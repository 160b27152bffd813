package webclient

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/textproto"
	"strings"
	"sync"
	"time"
)

// maxWireHeader caps how many response bytes a connection buffers while
// looking for the end of the header block.
const maxWireHeader = 1 << 20

// HeaderField is one response header line exactly as received: the name keeps
// its original case and fields keep wire order.
type HeaderField struct {
	Name  string
	Value string
}

// wireConn remembers the first final (non-1xx) response header block read
// from the connection.
type wireConn struct {
	net.Conn

	mu    sync.Mutex
	buf   []byte
	block []byte
	full  bool
}

func (c *wireConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.capture(p[:n])
	}
	return n, err
}

func (c *wireConn) capture(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.block != nil || c.full {
		return
	}
	c.buf = append(c.buf, b...)
	if block, ok := finalHeaderBlock(c.buf); ok {
		c.block, c.buf = block, nil
		return
	}
	if len(c.buf) > maxWireHeader {
		c.full, c.buf = true, nil
	}
}

func (c *wireConn) headerBlock() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

// headerEnd returns the offset just past the blank line that ends the first
// header block in b, or -1.
func headerEnd(b []byte) int {
	for i := 0; i < len(b); {
		j := bytes.IndexByte(b[i:], '\n')
		if j < 0 {
			return -1
		}
		line := b[i : i+j]
		i += j + 1
		if len(line) == 0 || (len(line) == 1 && line[0] == '\r') {
			return i
		}
	}
	return -1
}

// finalHeaderBlock skips informational 1xx blocks and returns the first
// final header block, status line included.
func finalHeaderBlock(b []byte) ([]byte, bool) {
	for {
		end := headerEnd(b)
		if end < 0 {
			return nil, false
		}
		block := b[:end]
		if !isInformational(block) {
			return append([]byte(nil), block...), true
		}
		b = b[end:]
	}
}

func isInformational(block []byte) bool {
	line := block
	if i := bytes.IndexByte(block, '\n'); i >= 0 {
		line = block[:i]
	}
	f := strings.Fields(string(line))
	return len(f) >= 2 && len(f[1]) == 3 && f[1][0] == '1' && f[1] != "101"
}

// parseHeaderBlock splits a header block into its status line and fields.
// Folded continuation lines are joined.
func parseHeaderBlock(block []byte) (string, []HeaderField, error) {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(block)))
	status, err := tp.ReadLine()
	if err != nil {
		return "", nil, err
	}
	fields := []HeaderField{}
	for {
		line, err := tp.ReadContinuedLine()
		if err != nil {
			return "", nil, err
		}
		if line == "" {
			return status, fields, nil
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			continue
		}
		fields = append(fields, HeaderField{Name: name, Value: strings.TrimSpace(value)})
	}
}

// matchesResponse reports whether fields plausibly belong to resp: every
// header net/http kept must appear among the wire names.
func matchesResponse(status string, fields []HeaderField, resp *http.Response) bool {
	f := strings.Fields(status)
	if len(f) < 2 || f[1] != resp.Status[:min(3, len(resp.Status))] {
		return false
	}
	seen := make(map[string]bool, len(fields))
	for _, fld := range fields {
		seen[textproto.CanonicalMIMEHeaderKey(fld.Name)] = true
	}
	for name := range resp.Header {
		if !seen[name] {
			return false
		}
	}
	return true
}

// wireTransport clones base so every connection records the raw response
// header block. Connections carry a single exchange each so a block always
// belongs to the response that was read from it.
func wireTransport(base *http.Transport) *http.Transport {
	t := base.Clone()
	t.DisableKeepAlives = true
	t.ForceAttemptHTTP2 = false

	dial := t.DialContext
	if dial == nil {
		dial = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	}
	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		c, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		return &wireConn{Conn: c}, nil
	}

	dialTLS := t.DialTLSContext
	tlsCfg := t.TLSClientConfig
	t.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if dialTLS != nil {
			c, err := dialTLS(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &wireConn{Conn: c}, nil
		}

		raw, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		cfg := &tls.Config{}
		if tlsCfg != nil {
			cfg = tlsCfg.Clone()
		}
		if cfg.ServerName == "" {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}
			cfg.ServerName = host
		}
		cfg.NextProtos = []string{"http/1.1"}

		tc := tls.Client(raw, cfg)
		if err := tc.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, err
		}
		return &wireConn{Conn: tc}, nil
	}
	return t
}

// connTracker remembers the last wire connection a request used. Redirect
// hops run in order, so the last one produced the returned response.
type connTracker struct {
	mu   sync.Mutex
	last *wireConn
}

func (ct *connTracker) trace(ctx context.Context) context.Context {
	return httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if wc, ok := info.Conn.(*wireConn); ok {
				ct.mu.Lock()
				ct.last = wc
				ct.mu.Unlock()
			}
		},
	})
}

// fields returns the raw status line and header fields of resp, or ok=false
// when they were not captured.
func (ct *connTracker) fields(resp *http.Response) (string, []HeaderField, bool) {
	ct.mu.Lock()
	wc := ct.last
	ct.mu.Unlock()
	if wc == nil {
		return "", nil, false
	}
	block := wc.headerBlock()
	if block == nil {
		return "", nil, false
	}
	status, fields, err := parseHeaderBlock(block)
	if err != nil || !matchesResponse(status, fields, resp) {
		return "", nil, false
	}
	return status, fields, true
}
