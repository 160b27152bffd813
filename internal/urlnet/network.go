// Package urlnet runs single URL requests through a fixed lifecycle:
// build the connection, send the request body, receive the response into a
// caller-supplied sink. What each phase does is decided by a RequestSpec
// value (Head, Get, Post) picked at call time.
package urlnet

import (
	"bytes"
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/raysh454/headprobe/internal/logging"
	"github.com/raysh454/headprobe/internal/webclient"
)

// Config tunes request construction.
type Config struct {
	// OmitEmptyQuery stops a bare "?" being appended to query-string
	// requests that have no parameters.
	OmitEmptyQuery bool `yaml:"omit_empty_query"`
}

// Network binds a target, a request variant and a transport. A Network may
// be executed any number of times; each Execute is independent.
type Network struct {
	cfg    Config
	target *Target
	spec   RequestSpec
	client webclient.WebClient
	logger logging.Logger
}

func NewNetwork(cfg Config, target *Target, spec RequestSpec, client webclient.WebClient, logger logging.Logger) *Network {
	return &Network{
		cfg:    cfg,
		target: target,
		spec:   spec,
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "urlnet"}),
	}
}

// Target returns the base locator.
func (n *Network) Target() *Target { return n.target }

// Execute runs build, send and receive once each and blocks for the whole
// round trip. The result is written to sink, which is never closed. If the
// build or connect phase fails nothing is written to sink.
func (n *Network) Execute(ctx context.Context, params Params, sink io.Writer, listener Listener) error {
	if sink == nil {
		return errors.New("nil output sink")
	}

	logger := n.logger.With(
		logging.Field{Key: "request_id", Value: uuid.NewString()},
		logging.Field{Key: "method", Value: n.spec.Method})

	conn, err := n.build(params, logger)
	if err != nil {
		logger.Warn("request build failed", logging.Err(err))
		return err
	}
	logger = logger.With(logging.Field{Key: "url", Value: conn.URL.String()})

	ex := &Exchange{
		Conn:     conn,
		Params:   params,
		listener: listener,
		logger:   logger,
	}

	body, err := n.send(ctx, ex)
	if err != nil {
		logger.Warn("request send failed", logging.Err(err))
		return err
	}

	resp, err := n.client.Do(ctx, conn.request(body))
	if err != nil {
		logger.Warn("request connect failed", logging.Err(err))
		return &OpError{Op: "connect", URL: conn.URL.String(), Err: err}
	}
	ex.Response = resp
	logger.Debug("response received",
		logging.Field{Key: "status", Value: resp.StatusCode},
		logging.Field{Key: "final_url", Value: resp.FinalURL})

	if conn.DoInput && n.spec.Receive != nil {
		if err := n.spec.Receive(ctx, ex, sink); err != nil {
			logger.Warn("request receive failed", logging.Err(err))
			return &OpError{Op: "receive", URL: conn.URL.String(), Err: err}
		}
	}

	logger.Info("request completed", logging.Field{Key: "status", Value: resp.StatusCode})
	return nil
}

func (n *Network) build(params Params, logger logging.Logger) (*Conn, error) {
	u := n.target.URL()
	if n.spec.Query {
		query, skipped := params.Encode()
		if len(skipped) > 0 {
			logger.Debug("parameters without a query value were left out",
				logging.Field{Key: "names", Value: skipped})
		}
		var err error
		u, err = n.target.WithQuery(query, n.cfg.OmitEmptyQuery)
		if err != nil {
			return nil, err
		}
	}

	conn := newConn(u)
	if n.spec.Build != nil {
		if err := n.spec.Build(conn); err != nil {
			return nil, &OpError{Op: "build", URL: u.String(), Err: err}
		}
	}

	if conn.IsHTTP() {
		if n.spec.BuildHTTP != nil {
			if err := n.spec.BuildHTTP(conn); err != nil {
				return nil, &OpError{Op: "build", URL: u.String(), Err: err}
			}
		}
	} else if !n.spec.SupportsNonHTTP {
		return nil, errors.Wrapf(ErrUnsupportedProtocol, "%s over %q", n.spec.Method, u.Scheme)
	}
	return conn, nil
}

func (n *Network) send(ctx context.Context, ex *Exchange) ([]byte, error) {
	if !ex.Conn.DoOutput || n.spec.Send == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := n.spec.Send(ctx, ex, &buf); err != nil {
		return nil, &OpError{Op: "send", URL: ex.Conn.URL.String(), Err: err}
	}
	return buf.Bytes(), nil
}
