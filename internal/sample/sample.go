// Package sample builds bounded, decode-tolerant text views of file content
// for heuristic matching.
package sample

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DefaultMaxBytes is the sample budget used by New.
	DefaultMaxBytes = 64 * 1024

	// binSniffLen is how far IsBinary looks for a NUL byte.
	binSniffLen = 8000
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// Sample is an immutable view of (possibly truncated) file content.
// The zero value is None: no content was available at all, which is not the
// same thing as an empty file.
type Sample struct {
	data      []byte
	available bool
	truncated bool
}

// None represents "no content available".
var None = Sample{}

// Bytes returns the sample content. Callers must not modify it.
func (s Sample) Bytes() []byte { return s.data }

// String returns the sample content as a string.
func (s Sample) String() string { return string(s.data) }

// Len returns the sample length in bytes.
func (s Sample) Len() int { return len(s.data) }

// Available reports whether the sample was built from real content.
func (s Sample) Available() bool { return s.available }

// Truncated reports whether the content was cut to fit the budget.
func (s Sample) Truncated() bool { return s.truncated }

// Sampler cuts raw file bytes down to a sample.
type Sampler struct {
	maxBytes int
}

// NewSampler creates a sampler with the given byte budget.
// A non-positive budget falls back to DefaultMaxBytes.
func NewSampler(maxBytes int) *Sampler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Sampler{maxBytes: maxBytes}
}

// MaxBytes returns the sampler's byte budget.
func (s *Sampler) MaxBytes() int { return s.maxBytes }

// New samples raw with DefaultMaxBytes.
func New(raw []byte) Sample {
	return NewSampler(DefaultMaxBytes).Sample(raw)
}

// Sample decodes and truncates raw. It never fails: bytes that cannot be
// decoded are kept as they are.
func (s *Sampler) Sample(raw []byte) Sample {
	text := decode(raw)

	cut, truncated := cutPoint(text, s.maxBytes)
	data := make([]byte, cut)
	copy(data, text[:cut])

	return Sample{data: data, available: true, truncated: truncated}
}

// decode converts UTF-16 content (detected by its byte-order mark) to UTF-8
// and drops a UTF-8 byte-order mark. Anything else is returned unchanged.
func decode(raw []byte) []byte {
	switch {
	case bytes.HasPrefix(raw, utf8BOM):
		return raw[len(utf8BOM):]
	case bytes.HasPrefix(raw, utf16LEBOM), bytes.HasPrefix(raw, utf16BEBOM):
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, raw)
		if err != nil {
			return raw
		}
		return out
	default:
		return raw
	}
}

// cutPoint returns where to truncate text so it fits maxBytes without
// splitting a line. The first line is always kept whole, even when it alone
// exceeds the budget, so that line-start anchors keep their meaning.
func cutPoint(text []byte, maxBytes int) (int, bool) {
	if len(text) <= maxBytes {
		return len(text), false
	}

	firstEnd := bytes.IndexByte(text, '\n')
	if firstEnd < 0 {
		return len(text), false
	}
	firstEnd++ // keep the terminator

	if firstEnd >= maxBytes {
		return firstEnd, firstEnd < len(text)
	}

	last := bytes.LastIndexByte(text[:maxBytes], '\n')
	return last + 1, true
}

// IsBinary reports whether raw looks like binary data: a NUL byte within
// the first 8000 bytes.
func IsBinary(raw []byte) bool {
	if len(raw) > binSniffLen {
		raw = raw[:binSniffLen]
	}
	return bytes.IndexByte(raw, 0) != -1
}
