package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/headprobe/internal/logging"
)

// net/http backed implementation of webclient.
type NetHTTPClient struct {
	client    *http.Client
	userAgent string
	logger    logging.Logger
	// wire is set when the transport records header fields as received.
	wire bool
}

// NewNetHTTPClient wraps httpClient, or a default client when nil. A nil or
// *http.Transport transport is cloned into one that records raw response
// headers and uses one connection per exchange; any other RoundTripper is
// used as-is and responses then carry only canonicalized Headers.

func NewNetHTTPClient(cfg Config, logger logging.Logger, httpClient *http.Client) (*NetHTTPClient, error) {
	componentLogger := logger.With(logging.Field{Key: "backend", Value: string(ClientNetHTTP)})

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := *httpClient
	wire := false
	switch tr := c.Transport.(type) {
	case nil:
		c.Transport = wireTransport(http.DefaultTransport.(*http.Transport))
		wire = true
	case *http.Transport:
		c.Transport = wireTransport(tr)
		wire = true
	}
	httpClient = &c

	componentLogger.Debug("created nethttp webclient",
		logging.Field{Key: "timeout", Value: httpClient.Timeout.String()},
		logging.Field{Key: "raw_headers", Value: wire})

	return &NetHTTPClient{
		client:    httpClient,
		userAgent: cfg.UserAgent,
		logger:    componentLogger,
		wire:      wire,
	}, nil
}

// Do implements the generic request execution using net/http.
func (nhc *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, nhc.ErrInvalidRequest()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	nhc.logger.Debug("sending http request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "follow_redirects", Value: req.FollowRedirects})

	var tracker *connTracker
	if nhc.wire {
		tracker = &connTracker{}
		ctx = tracker.trace(ctx)
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if nhc.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", nhc.userAgent)
	}

	resp, err := nhc.clientFor(req).Do(httpReq)
	if err != nil {
		nhc.logger.Warn("http request failed",
			logging.Field{Key: "method", Value: method},
			logging.Field{Key: "url", Value: req.URL},
			logging.Err(err))
		return nil, fmt.Errorf("http do: %w", err)
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		nhc.logger.Warn("failed to read response body",
			logging.Field{Key: "method", Value: method},
			logging.Field{Key: "url", Value: req.URL},
			logging.Err(err))
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	out := &Response{
		Request:    req,
		Body:       body,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Proto:      resp.Proto,
		FinalURL:   finalURL,
		FetchedAt:  time.Now(),
	}
	if tracker != nil {
		if status, fields, ok := tracker.fields(resp); ok {
			out.RawStatus, out.Fields = status, fields
		} else {
			nhc.logger.Debug("raw response headers unavailable; using canonical names",
				logging.Field{Key: "url", Value: finalURL})
		}
	}
	return out, nil
}

// clientFor returns the shared client, or a shallow copy that stops at the
// first response when the request does not want redirects followed.
func (nhc *NetHTTPClient) clientFor(req *Request) *http.Client {
	if req.FollowRedirects {
		return nhc.client
	}
	c := *nhc.client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c
}

// Get is a convenience method for simple GET requests
func (nhc *NetHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return nhc.Do(ctx, &Request{
		Method:          http.MethodGet,
		URL:             url,
		FollowRedirects: true,
	})
}

// Head is a convenience method for HEAD requests that follow redirects.
func (nhc *NetHTTPClient) Head(ctx context.Context, url string) (*Response, error) {
	return nhc.Do(ctx, &Request{
		Method:          http.MethodHead,
		URL:             url,
		FollowRedirects: true,
	})
}

func (nhc *NetHTTPClient) Close() error {
	nhc.logger.Debug("closing nethttp webclient")
	nhc.client.CloseIdleConnections()
	return nil
}

// HTTPClient returns the underlying *http.Client
func (nhc *NetHTTPClient) HTTPClient() *http.Client {
	return nhc.client
}

// ErrInvalidRequest returns an error for invalid request scenarios
func (nhc *NetHTTPClient) ErrInvalidRequest() error {
	return fmt.Errorf("request cannot be nil")
}
