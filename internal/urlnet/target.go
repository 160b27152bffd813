package urlnet

import (
	"net"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

// Target is the base locator a request is issued against. It is immutable
// once built.
type Target struct {
	base *url.URL
}

// ParseTarget parses raw into a Target. raw must be an absolute URL.
func ParseTarget(raw string) (*Target, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedURL, "parse %q: %v", raw, err)
	}
	return NewTarget(u)
}

// NewTarget builds a Target from an already parsed URL. u is copied.
func NewTarget(u *url.URL) (*Target, error) {
	if u == nil {
		return nil, errors.Wrap(ErrMalformedURL, "nil url")
	}
	if !u.IsAbs() {
		return nil, errors.Wrapf(ErrMalformedURL, "%q has no scheme", u.String())
	}

	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Fragment = ""
	c.RawFragment = ""
	if c.Host != "" {
		c.Host = asciiHost(&c)
	}
	if c.Scheme == "http" || c.Scheme == "https" {
		if c.Host == "" {
			return nil, errors.Wrapf(ErrMalformedURL, "%q has no host", u.String())
		}
	}
	return &Target{base: &c}, nil
}

// asciiHost lower-cases the host and converts an internationalized name to
// punycode, keeping any port. Names IDNA rejects are only lower-cased.
func asciiHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}
	if port := u.Port(); port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// URL returns a copy of the base locator.
func (t *Target) URL() *url.URL {
	c := *t.base
	return &c
}

func (t *Target) String() string { return t.base.String() }

// Scheme returns the lower-cased scheme.
func (t *Target) Scheme() string { return t.base.Scheme }

// WithQuery appends query to the base locator and re-parses the result.
//
// An empty query still appends a bare "?" unless omitEmpty is set. When the
// base already carries a query the new one is joined with "&".
func (t *Target) WithQuery(query string, omitEmpty bool) (*url.URL, error) {
	raw := t.base.String()
	hasQuery := t.base.RawQuery != ""
	switch {
	case query == "" && (omitEmpty || hasQuery || t.base.ForceQuery):
	case hasQuery:
		raw += "&" + query
	case t.base.ForceQuery:
		raw += query
	default:
		raw += "?" + query
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedURL, "request url %q: %v", raw, err)
	}
	return u, nil
}
