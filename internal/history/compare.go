package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/headprobe/internal/headerdoc"
)

const redactedValue = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"x-csrf-token":        true,
}

// HeaderDiff represents differences in headers between two probes.
type HeaderDiff struct {
	Added    map[string][]string `json:"added,omitempty"`
	Removed  map[string][]string `json:"removed,omitempty"`
	Changed  map[string]Change   `json:"changed,omitempty"`
	Redacted []string            `json:"redacted,omitempty"`
}

// Change represents a value change for a specific header.
type Change struct {
	From []string `json:"from"`
	To   []string `json:"to"`
}

// Empty reports whether the diff holds no changes at all.
func (d HeaderDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0 && len(d.Redacted) == 0
}

// Chunk is one inserted or deleted run of document text.
type Chunk struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// Comparison is the result of comparing two stored probes.
type Comparison struct {
	BaseID  string     `json:"base_id"`
	HeadID  string     `json:"head_id"`
	Headers HeaderDiff `json:"headers"`
	Chunks  []Chunk    `json:"chunks"`
}

// Compare loads two records and diffs their header documents. With redact
// set, values of credential-bearing headers are never exposed.
func (s *Store) Compare(ctx context.Context, baseID, headID string, redact bool) (*Comparison, error) {
	base, err := s.Get(ctx, baseID)
	if err != nil {
		return nil, fmt.Errorf("loading base probe: %w", err)
	}
	head, err := s.Get(ctx, headID)
	if err != nil {
		return nil, fmt.Errorf("loading head probe: %w", err)
	}
	return CompareRecords(base, head, redact)
}

// CompareRecords diffs two records without touching the store.
func CompareRecords(base, head *Record, redact bool) (*Comparison, error) {
	baseDoc, err := headerdoc.Decode(base.Document)
	if err != nil {
		return nil, fmt.Errorf("decoding probe %s: %w", base.ID, err)
	}
	headDoc, err := headerdoc.Decode(head.Document)
	if err != nil {
		return nil, fmt.Errorf("decoding probe %s: %w", head.ID, err)
	}

	baseText, headText := base.Document, head.Document
	if redact {
		baseText = redactDocument(baseDoc)
		headText = redactDocument(headDoc)
	}

	return &Comparison{
		BaseID:  base.ID,
		HeadID:  head.ID,
		Headers: diffHeaders(baseDoc.ToMap(), headDoc.ToMap(), redact),
		Chunks:  textChunks(string(baseText), string(headText)),
	}, nil
}

// normalizeHeaders lowercases names, trims and sorts values, and with redact
// set replaces sensitive values.
func normalizeHeaders(h map[string][]string, redact bool) map[string][]string {
	out := make(map[string][]string, len(h))
	for name, values := range h {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if redact && isSensitiveHeader(key) {
			out[key] = []string{redactedValue}
			continue
		}
		vs := make([]string, 0, len(values))
		for _, v := range values {
			vs = append(vs, strings.TrimSpace(v))
		}
		vs = append(out[key], vs...)
		sort.Strings(vs)
		out[key] = vs
	}
	return out
}

func isSensitiveHeader(name string) bool {
	return sensitiveHeaders[strings.ToLower(strings.TrimSpace(name))]
}

// diffHeaders compares two header maps after normalization. A sensitive
// header whose value changed is listed under Redacted when redact is set.
func diffHeaders(base, head map[string][]string, redact bool) HeaderDiff {
	var diff HeaderDiff
	if base == nil && head == nil {
		return diff
	}

	rawBase := normalizeHeaders(base, false)
	rawHead := normalizeHeaders(head, false)
	nb := normalizeHeaders(base, redact)
	nh := normalizeHeaders(head, redact)

	for name, values := range nh {
		old, ok := nb[name]
		if !ok {
			if diff.Added == nil {
				diff.Added = map[string][]string{}
			}
			diff.Added[name] = values
			continue
		}
		if redact && isSensitiveHeader(name) {
			if !equalValues(rawBase[name], rawHead[name]) {
				diff.Redacted = append(diff.Redacted, name)
			}
			continue
		}
		if !equalValues(old, values) {
			if diff.Changed == nil {
				diff.Changed = map[string]Change{}
			}
			diff.Changed[name] = Change{From: old, To: values}
		}
	}
	for name, values := range nb {
		if _, ok := nh[name]; !ok {
			if diff.Removed == nil {
				diff.Removed = map[string][]string{}
			}
			diff.Removed[name] = values
		}
	}
	sort.Strings(diff.Redacted)
	return diff
}

func equalValues(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// redactDocument re-encodes a document with sensitive values masked.
func redactDocument(d headerdoc.Document) []byte {
	m := make(headerdoc.Map, 0, d.Len())
	for _, name := range d.Names() {
		values, _ := d.Values(name)
		if isSensitiveHeader(name) {
			values = []string{redactedValue}
		}
		m = append(m, headerdoc.Field{Name: headerdoc.Str(name), Values: headerdoc.Strs(values...)})
	}
	data, err := headerdoc.Sanitize(m).MarshalIndent()
	if err != nil {
		return nil
	}
	return data
}

// textChunks returns the non-blank insertions and deletions between two
// documents.
func textChunks(base, head string) []Chunk {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(base, head, true))

	chunks := make([]Chunk, 0)
	for _, d := range diffs {
		var chunkType string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chunkType = "added"
		case diffmatchpatch.DiffDelete:
			chunkType = "removed"
		default:
			continue
		}
		if strings.TrimSpace(d.Text) != "" {
			chunks = append(chunks, Chunk{Type: chunkType, Content: d.Text})
		}
	}
	return chunks
}
