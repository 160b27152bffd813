package demoserver

// Config holds configuration for the demo origin.
type Config struct {
	// Addr is the address the demo origin listens on.
	Addr string `yaml:"addr"`

	// InitialVersion is the starting header version for all pages (default: 1).
	InitialVersion int `yaml:"initial_version"`

	// MaxRedirects caps the length of a /redirect/{n} chain.
	MaxRedirects int `yaml:"max_redirects"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:           ":9999",
		InitialVersion: 1,
		MaxRedirects:   10,
	}
}
