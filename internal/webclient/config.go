package webclient

import "time"

type Client string

const (
	ClientNetHTTP Client = "nethttp"
)

const defaultTimeout = 30 * time.Second

// Config is what backend constructors receive. It lives here rather than in
// app.Config so webclient does not import app.
type Config struct {
	Client Client `yaml:"client"`

	// Timeout bounds a whole round trip. Zero means 30s.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent, when set, is sent on requests that do not carry their own.
	UserAgent string `yaml:"user_agent"`
}
