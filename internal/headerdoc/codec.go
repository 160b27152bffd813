package headerdoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"
)

const indent = "  "

// MarshalIndent renders d as a pretty-printed UTF-8 JSON object with a
// trailing newline. Keys keep document order. Invalid UTF-8 in names or
// values is replaced with U+FFFD.
func (d Document) MarshalIndent() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the pretty-printed document to w.
func (d Document) Encode(w io.Writer) error {
	enc := jsontext.NewEncoder(w,
		jsontext.WithIndent(indent),
		jsontext.AllowInvalidUTF8(true),
	)

	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return fmt.Errorf("begin object: %w", err)
	}
	for _, e := range d.entries {
		if err := enc.WriteToken(jsontext.String(e.name)); err != nil {
			return fmt.Errorf("write name %q: %w", e.name, err)
		}
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return fmt.Errorf("begin values for %q: %w", e.name, err)
		}
		for _, v := range e.values {
			if err := enc.WriteToken(jsontext.String(v)); err != nil {
				return fmt.Errorf("write value for %q: %w", e.name, err)
			}
		}
		if err := enc.WriteToken(jsontext.EndArray); err != nil {
			return fmt.Errorf("end values for %q: %w", e.name, err)
		}
	}
	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return fmt.Errorf("end object: %w", err)
	}
	return nil
}

// ErrNotHeaderDocument is returned by Decode when the input is valid JSON
// but not an object of string arrays.
var ErrNotHeaderDocument = errors.New("not a header document")

// Decode parses a document produced by MarshalIndent, keeping key order.
// Duplicate keys are rejected.
func Decode(data []byte) (Document, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(data))

	var d Document
	if err := expectKind(dec, '{'); err != nil {
		return Document{}, err
	}
	for dec.PeekKind() == '"' {
		tok, err := dec.ReadToken()
		if err != nil {
			return Document{}, fmt.Errorf("read name: %w", err)
		}
		name := tok.String()

		if err := expectKind(dec, '['); err != nil {
			return Document{}, fmt.Errorf("values for %q: %w", name, err)
		}
		values := []string{}
		for dec.PeekKind() == '"' {
			v, err := dec.ReadToken()
			if err != nil {
				return Document{}, fmt.Errorf("read value for %q: %w", name, err)
			}
			values = append(values, v.String())
		}
		if err := expectKind(dec, ']'); err != nil {
			return Document{}, fmt.Errorf("values for %q: %w", name, err)
		}
		d.entries = append(d.entries, entry{name: name, values: values})
	}
	if err := expectKind(dec, '}'); err != nil {
		return Document{}, err
	}
	if _, err := dec.ReadToken(); !errors.Is(err, io.EOF) {
		return Document{}, fmt.Errorf("%w: trailing data after object", ErrNotHeaderDocument)
	}
	return d, nil
}

func expectKind(dec *jsontext.Decoder, want jsontext.Kind) error {
	tok, err := dec.ReadToken()
	if err != nil {
		return fmt.Errorf("decode header document: %w", err)
	}
	if tok.Kind() != want {
		return fmt.Errorf("%w: expected %v, got %v", ErrNotHeaderDocument, want, tok.Kind())
	}
	return nil
}
