package urlnet

import (
	"fmt"

	"github.com/raysh454/headprobe/internal/logging"
)

// Listener is told about request progress. Its errors and panics are logged
// and otherwise ignored: a listener can never fail a request.
type Listener interface {
	OnRunning(done bool, processed, total int64) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(done bool, processed, total int64) error

func (f ListenerFunc) OnRunning(done bool, processed, total int64) error {
	return f(done, processed, total)
}

func notifyRunning(logger logging.Logger, l Listener, done bool, processed, total int64) {
	if l == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("progress listener panicked",
				logging.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()
	if err := l.OnRunning(done, processed, total); err != nil {
		logger.Warn("progress listener failed", logging.Err(err))
	}
}
