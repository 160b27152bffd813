package urlnet

import (
	"github.com/pkg/errors"
)

var (
	// ErrMalformedURL reports a locator that cannot be parsed into an
	// absolute URL, or a request URL that no longer parses once the query
	// string is appended.
	ErrMalformedURL = errors.New("malformed url")

	// ErrUnsupportedProtocol reports a RequestSpec run against a scheme it
	// cannot speak.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// OpError is a request-fatal failure in one lifecycle phase.
type OpError struct {
	// Op is the phase that failed: "build", "send", "connect" or "receive".
	Op  string
	URL string
	Err error
}

func (e *OpError) Error() string {
	return e.Op + " " + e.URL + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err came from a lifecycle phase rather
// than from target validation.
func IsConnectionError(err error) bool {
	var op *OpError
	return errors.As(err, &op)
}
