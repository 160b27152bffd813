package urlnet

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/raysh454/headprobe/internal/headerdoc"
	"github.com/raysh454/headprobe/internal/logging"
	"github.com/raysh454/headprobe/internal/webclient"
)

// RequestSpec describes one request variant. Network runs its hooks in
// order, each at most once: Build, BuildHTTP (HTTP only), Send, Receive.
// Nil hooks are skipped.
type RequestSpec struct {
	Method string

	// Query places the parameters in the URL query string.
	Query bool

	// SupportsNonHTTP lets the spec run against schemes other than
	// http and https.
	SupportsNonHTTP bool

	Build     func(c *Conn) error
	BuildHTTP func(c *Conn) error

	// Send writes the request body to w. It only runs when the built Conn
	// has DoOutput set.
	Send func(ctx context.Context, ex *Exchange, w io.Writer) error

	// Receive consumes ex.Response and writes the result to the caller's
	// sink.
	Receive func(ctx context.Context, ex *Exchange, w io.Writer) error
}

// Exchange is what send and receive hooks see of a running request.
type Exchange struct {
	Conn     *Conn
	Params   Params
	Response *webclient.Response

	listener Listener
	logger   logging.Logger
}

// Progress forwards a progress notification to the listener, if any.
func (ex *Exchange) Progress(done bool, processed, total int64) {
	notifyRunning(ex.logger, ex.listener, done, processed, total)
}

func (ex *Exchange) Logger() logging.Logger { return ex.logger }

// Head issues a HEAD request and writes the response headers as a
// pretty-printed JSON object. Nothing is sent and no body is read.
func Head() RequestSpec {
	return RequestSpec{
		Method: http.MethodHead,
		Query:  true,
		Build: func(c *Conn) error {
			c.DoInput = true
			c.DoOutput = false
			c.UseCaches = false
			return nil
		},
		BuildHTTP: func(c *Conn) error {
			c.Method = http.MethodHead
			c.FollowRedirects = true
			return nil
		},
		Receive: receiveHeaders,
	}
}

func receiveHeaders(_ context.Context, ex *Exchange, w io.Writer) error {
	resp := ex.Response
	doc := headerdoc.Sanitize(headerdoc.FromResponse(resp))
	data, err := doc.MarshalIndent()
	if err != nil {
		return errors.Wrap(err, "encode headers")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "write headers")
	}

	n := int64(len(data))
	ex.Progress(true, n, n)
	return nil
}

// Get issues a GET request and copies the response body to the sink.
func Get() RequestSpec {
	return RequestSpec{
		Method: http.MethodGet,
		Query:  true,
		Build: func(c *Conn) error {
			c.DoInput = true
			c.DoOutput = false
			c.UseCaches = false
			return nil
		},
		BuildHTTP: func(c *Conn) error {
			c.Method = http.MethodGet
			c.FollowRedirects = true
			return nil
		},
		Receive: receiveBody,
	}
}

// Post sends the textual parameters as an urlencoded form and copies the
// response body to the sink.
func Post() RequestSpec {
	return RequestSpec{
		Method: http.MethodPost,
		Build: func(c *Conn) error {
			c.DoInput = true
			c.DoOutput = true
			c.UseCaches = false
			return nil
		},
		BuildHTTP: func(c *Conn) error {
			c.Method = http.MethodPost
			c.FollowRedirects = true
			c.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return nil
		},
		Send:    sendForm,
		Receive: receiveBody,
	}
}

func sendForm(_ context.Context, ex *Exchange, w io.Writer) error {
	form, skipped := ex.Params.Encode()
	if len(skipped) > 0 {
		ex.Logger().Debug("parameters without a form value were not sent",
			logging.Field{Key: "names", Value: skipped})
	}
	_, err := io.WriteString(w, form)
	return err
}

const copyChunk = 32 << 10

func receiveBody(_ context.Context, ex *Exchange, w io.Writer) error {
	body := ex.Response.Body
	total := int64(len(body))
	var written int64
	for written < total {
		end := written + copyChunk
		if end > total {
			end = total
		}
		n, err := w.Write(body[written:end])
		written += int64(n)
		if err != nil {
			return errors.Wrap(err, "write body")
		}
		if written < total {
			ex.Progress(false, written, total)
		}
	}
	ex.Progress(true, written, total)
	return nil
}
