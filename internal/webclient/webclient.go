// Package webclient is the transport boundary: one request in, one fully
// read response out.
package webclient

import "context"

// WebClient performs a single request. Implementations must be safe for
// concurrent use.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Close releases idle connections.
	Close() error
}
