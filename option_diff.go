package treediff

import (
	"github.com/bmatcuk/doublestar/v4"
)

// DiffOption represents optional parameters for Diff
type DiffOption func(*diffOptions)

type diffOptions struct {
	ignore         map[string]struct{}
	ignorePatterns []string
	match          MatchFunc
}

// defaultDiffOptions returns default options: nothing ignored, byte equality
func defaultDiffOptions() *diffOptions {
	return &diffOptions{
		ignore:         make(map[string]struct{}),
		ignorePatterns: []string{},
		match:          ByteEqual,
	}
}

// WithIgnore excludes entries with the given names at every level of both
// trees. Names are compared against the bare entry name, never a path.
func WithIgnore(names ...string) DiffOption {
	return func(opts *diffOptions) {
		for _, name := range names {
			opts.ignore[name] = struct{}{}
		}
	}
}

// WithIgnorePatterns excludes entries whose bare name matches any of the
// given glob patterns (doublestar syntax).
func WithIgnorePatterns(patterns ...string) DiffOption {
	return func(opts *diffOptions) {
		opts.ignorePatterns = append(opts.ignorePatterns, patterns...)
	}
}

// WithMatch sets the file equivalence function. A nil function keeps
// ByteEqual.
func WithMatch(match MatchFunc) DiffOption {
	return func(opts *diffOptions) {
		if match != nil {
			opts.match = match
		}
	}
}

func (opts *diffOptions) validate() error {
	for _, pattern := range opts.ignorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return newInvalidPatternError(pattern)
		}
	}

	return nil
}

func (opts *diffOptions) ignored(name string) bool {
	if _, ok := opts.ignore[name]; ok {
		return true
	}

	for _, pattern := range opts.ignorePatterns {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}

	return false
}
