package urlnet

import (
	"net/url"
	"sort"
	"strings"
)

// Body is a parameter value. Only bodies with a textual form can be placed
// in a query string or a urlencoded form.
type Body interface {
	// QueryValue returns the textual form and whether one exists.
	QueryValue() (string, bool)
}

// TextBody is a plain string parameter.
type TextBody string

func (b TextBody) QueryValue() (string, bool) { return string(b), true }

// BinaryBody is raw data. It has no query form and is skipped when query or
// form strings are built.
type BinaryBody []byte

func (BinaryBody) QueryValue() (string, bool) { return "", false }

// Params maps parameter names to values.
type Params map[string]Body

// Text builds Params from plain string pairs.
func Text(pairs map[string]string) Params {
	p := make(Params, len(pairs))
	for k, v := range pairs {
		p[k] = TextBody(v)
	}
	return p
}

// Encode percent-encodes every parameter with a textual form as name=value
// pairs joined by "&", in ascending name order. Names of parameters that
// were left out are returned in skipped.
func (p Params) Encode() (encoded string, skipped []string) {
	if len(p) == 0 {
		return "", nil
	}
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		body := p[name]
		if body == nil {
			skipped = append(skipped, name)
			continue
		}
		v, ok := body.QueryValue()
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	return b.String(), skipped
}
