package treediff

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	DefaultWildcard = "..."
	DefaultEncoding = "utf-8"
)

// FuzzyMatcher compares an actual file against an expected (golden) file.
// Expected content without the wildcard marker must equal the actual
// content exactly. Otherwise the text between markers must appear in the
// actual content in the same order, and content not preceded (or followed)
// by a marker is anchored to the start (or end) of the actual content.
type FuzzyMatcher struct {
	wildcard string
	encoding string
	codec    encoding.Encoding
}

// FuzzyOption represents optional parameters for NewFuzzyMatcher
type FuzzyOption func(*FuzzyMatcher)

// WithWildcard sets the wildcard marker. Defaults to "...".
func WithWildcard(marker string) FuzzyOption {
	return func(m *FuzzyMatcher) {
		m.wildcard = marker
	}
}

// WithEncoding sets the text encoding files are decoded with. Names follow
// the WHATWG encoding labels ("utf-8", "utf-16le", "windows-1252", ...).
func WithEncoding(name string) FuzzyOption {
	return func(m *FuzzyMatcher) {
		m.encoding = name
	}
}

func NewFuzzyMatcher(options ...FuzzyOption) (*FuzzyMatcher, error) {
	m := &FuzzyMatcher{
		wildcard: DefaultWildcard,
		encoding: DefaultEncoding,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.wildcard == "" {
		return nil, ErrInvalidWildcard.SetData(struct {
			Wildcard string `json:"wildcard"`
		}{
			Wildcard: m.wildcard,
		})
	}

	codec, err := htmlindex.Get(m.encoding)
	if err != nil {
		return nil, ErrInvalidEncoding.
			SetError(err).
			SetData(struct {
				Encoding string `json:"encoding"`
			}{
				Encoding: m.encoding,
			})
	}

	name, err := htmlindex.Name(codec)
	if err == nil && name == DefaultEncoding {
		codec = nil
	}

	m.codec = codec
	return m, nil
}

// Wildcard returns the configured wildcard marker
func (m *FuzzyMatcher) Wildcard() string {
	return m.wildcard
}

// Encoding returns the configured encoding label
func (m *FuzzyMatcher) Encoding() string {
	return m.encoding
}

// Match reports whether the file at actualPath matches the expected file at
// expectedPath. Content that cannot be decoded yields a *DecodeError.
func (m *FuzzyMatcher) Match(actualPath, expectedPath string) (bool, error) {
	actual, err := m.ReadText(actualPath)
	if err != nil {
		return false, err
	}

	expected, err := m.ReadText(expectedPath)
	if err != nil {
		return false, err
	}

	return m.MatchStrings(actual, expected), nil
}

// ExpectedLeft adapts the matcher to a MatchFunc for Diff(expected, actual)
func (m *FuzzyMatcher) ExpectedLeft() MatchFunc {
	return func(expectedPath, actualPath string) (bool, error) {
		return m.Match(actualPath, expectedPath)
	}
}

// ExpectedRight adapts the matcher to a MatchFunc for Diff(actual, expected)
func (m *FuzzyMatcher) ExpectedRight() MatchFunc {
	return m.Match
}

// MatchStrings applies the wildcard rules to already decoded content
func (m *FuzzyMatcher) MatchStrings(actual, expected string) bool {
	if !strings.Contains(expected, m.wildcard) {
		return actual == expected
	}

	segments := strings.Split(expected, m.wildcard)
	head, tail := segments[0], segments[len(segments)-1]

	if !strings.HasPrefix(actual, head) {
		return false
	}
	rest := actual[len(head):]

	if !strings.HasSuffix(rest, tail) {
		return false
	}
	rest = rest[:len(rest)-len(tail)]

	for _, segment := range segments[1 : len(segments)-1] {
		index := strings.Index(rest, segment)
		if index < 0 {
			return false
		}
		rest = rest[index+len(segment):]
	}

	return true
}

// ReadText reads the file at path and decodes it strictly
func (m *FuzzyMatcher) ReadText(path string) (string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return "", err
	}

	return m.Decode(path, data)
}

// Decode decodes data with the configured encoding. Undecodable input is a
// *DecodeError; nothing is replaced silently.
func (m *FuzzyMatcher) Decode(path string, data []byte) (string, error) {
	if m.codec == nil {
		if offset := invalidUTF8Offset(data); offset >= 0 {
			return "", &DecodeError{Path: path, Encoding: m.encoding, Offset: offset}
		}
		return string(data), nil
	}

	decoded, err := m.codec.NewDecoder().Bytes(data)
	if err != nil {
		return "", &DecodeError{Path: path, Encoding: m.encoding, Offset: -1}
	}

	// x/text decoders substitute U+FFFD for invalid input, so only a
	// lossless round trip proves the input was valid.
	encoded, err := m.codec.NewEncoder().Bytes(decoded)
	if err != nil || !bytes.Equal(encoded, data) {
		return "", &DecodeError{Path: path, Encoding: m.encoding, Offset: -1}
	}

	return string(decoded), nil
}

func invalidUTF8Offset(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}

	for offset := 0; offset < len(data); {
		r, size := utf8.DecodeRune(data[offset:])
		if r == utf8.RuneError && size <= 1 {
			return offset
		}
		offset += size
	}

	return -1
}
