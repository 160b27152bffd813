package webclient

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/headprobe/internal/logging"
)

// ErrUnknownBackend is returned when a config names a backend nobody registered.
var ErrUnknownBackend = errors.New("unknown webclient backend")

// BackendConstructor constructs a WebClient given the config and logger.
type BackendConstructor func(cfg Config, logger logging.Logger) (WebClient, error)

// Registry maps backend names to constructors. Names are case-insensitive.
type Registry struct {
	mu    sync.RWMutex
	ctors map[Client]BackendConstructor
}

// NewRegistry returns a Registry holding the built-in nethttp backend.
func NewRegistry() *Registry {
	r := &Registry{ctors: map[Client]BackendConstructor{}}
	r.Register(ClientNetHTTP, newNetHTTPBackend)
	return r
}

func newNetHTTPBackend(cfg Config, logger logging.Logger) (WebClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewNetHTTPClient(cfg, logger, &http.Client{Timeout: timeout})
}

func normalizeClient(c Client) Client {
	name := Client(strings.ToLower(strings.TrimSpace(string(c))))
	if name == "" {
		return ClientNetHTTP
	}
	return name
}

// Register adds or replaces a backend.
func (r *Registry) Register(name Client, ctor BackendConstructor) {
	if strings.TrimSpace(string(name)) == "" || ctor == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[normalizeClient(name)] = ctor
}

// New builds the backend cfg.Client names; empty means nethttp.
func (r *Registry) New(cfg Config, logger logging.Logger) (WebClient, error) {
	backend := normalizeClient(cfg.Client)

	r.mu.RLock()
	ctor, ok := r.ctors[backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, backend, strings.Join(r.Names(), ", "))
	}

	wc, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing webclient backend %q: %w", backend, err)
	}
	if wc == nil {
		return nil, fmt.Errorf("webclient backend %q returned a nil client", backend)
	}
	return wc, nil
}

// Names returns the sorted registered backend names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// RegisterBackend registers a backend on the process-wide registry.
func RegisterBackend(name string, ctor BackendConstructor) {
	defaultRegistry.Register(Client(name), ctor)
}

// NewWebClient builds a backend from the process-wide registry.
func NewWebClient(cfg Config, logger logging.Logger) (WebClient, error) {
	return defaultRegistry.New(cfg, logger)
}

// ListBackends returns the sorted backend names of the process-wide registry.
func ListBackends() []string {
	return defaultRegistry.Names()
}
