// Package headerdoc turns raw response header fields into the JSON document
// headprobe emits: an object whose keys are header names and whose values
// are arrays of strings, in field order.
//
// Header data arriving from a transport is treated as untrusted. It is
// modelled as Map, a sequence of fields with optional names and optional
// values, and filtered once by Sanitize. Everything downstream of Sanitize
// works on a Document, which has no absent names or values.
package headerdoc

import (
	"net/http"
	"sort"

	"github.com/raysh454/headprobe/internal/webclient"
)

// Field is one header field as delivered by a transport. A nil Name marks a
// nameless entry such as a status line. Nil entries in Values are absent
// values.
type Field struct {
	Name   *string
	Values []*string
}

// Map is an ordered sequence of raw header fields.
type Map []Field

// Str returns a pointer to s, for building Maps by hand.
func Str(s string) *string { return &s }

// Strs returns pointers to each of ss, in order.
func Strs(ss ...string) []*string {
	out := make([]*string, len(ss))
	for i := range ss {
		out[i] = Str(ss[i])
	}
	return out
}

// FromHTTP converts a status line and an http.Header into a Map. The status
// line, when non-empty, comes first under a nil name. Header names are
// emitted in lexical order since http.Header has no order of its own.
func FromHTTP(statusLine string, h http.Header) Map {
	m := make(Map, 0, len(h)+1)
	if statusLine != "" {
		m = append(m, Field{Values: Strs(statusLine)})
	}

	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m = append(m, Field{Name: Str(name), Values: Strs(h[name]...)})
	}
	return m
}

// FromResponse converts a transport response into a Map. When the backend
// captured the header lines as received, names keep their case and fields
// keep wire order, with repeated lines of the same name gathered under its
// first occurrence. Otherwise it falls back to FromHTTP.
func FromResponse(resp *webclient.Response) Map {
	if resp.Fields == nil {
		return FromHTTP(resp.StatusLine(), resp.Headers)
	}

	m := make(Map, 0, len(resp.Fields)+1)
	if status := resp.StatusLine(); status != "" {
		m = append(m, Field{Values: Strs(status)})
	}
	index := make(map[string]int, len(resp.Fields))
	for _, f := range resp.Fields {
		i, ok := index[f.Name]
		if !ok {
			i = len(m)
			index[f.Name] = i
			m = append(m, Field{Name: Str(f.Name), Values: []*string{}})
		}
		m[i].Values = append(m[i].Values, Str(f.Value))
	}
	return m
}

type entry struct {
	name   string
	values []string
}

// Document is a sanitized header map ready for serialization.
type Document struct {
	entries []entry
}

// Sanitize drops fields with a nil name or a nil value list, and nil values
// within a list. A named field whose list holds only nil values is kept with
// an empty list. A repeated name keeps its first position and takes the
// later values.
func Sanitize(m Map) Document {
	var d Document
	index := make(map[string]int, len(m))
	for _, f := range m {
		if f.Name == nil || f.Values == nil {
			continue
		}
		values := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			if v == nil {
				continue
			}
			values = append(values, *v)
		}
		if i, ok := index[*f.Name]; ok {
			d.entries[i].values = values
			continue
		}
		index[*f.Name] = len(d.entries)
		d.entries = append(d.entries, entry{name: *f.Name, values: values})
	}
	return d
}

// Len reports the number of header names in the document.
func (d Document) Len() int { return len(d.entries) }

// Names returns header names in document order.
func (d Document) Names() []string {
	out := make([]string, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.name
	}
	return out
}

// Values returns the values recorded for name and whether name is present.
func (d Document) Values(name string) ([]string, bool) {
	for _, e := range d.entries {
		if e.name == name {
			return append([]string(nil), e.values...), true
		}
	}
	return nil, false
}

// ToMap returns the document as a plain map. Order is lost.
func (d Document) ToMap() map[string][]string {
	out := make(map[string][]string, len(d.entries))
	for _, e := range d.entries {
		out[e.name] = append([]string{}, e.values...)
	}
	return out
}
