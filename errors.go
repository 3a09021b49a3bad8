package treediff

import (
	"errors"
	"fmt"

	"github.com/boostgo/errorx"
)

var (
	ErrDirectoryNotFound = errorx.New("treediff.directory.not_found")
	ErrTraverseDirectory = errorx.New("treediff.directory.traverse")
	ErrReadFile          = errorx.New("treediff.file.read")
	ErrDecodeFile        = errorx.New("treediff.file.decode")
	ErrInvalidPattern    = errorx.New("treediff.options.invalid_pattern")
	ErrInvalidEncoding   = errorx.New("treediff.options.invalid_encoding")
	ErrInvalidWildcard   = errorx.New("treediff.options.invalid_wildcard")
	ErrBuildReport       = errorx.New("treediff.report.build")
)

type pathErrorContext struct {
	Path  string `json:"path"`
	Error error  `json:"error"`
}

// DirectoryNotFoundError is returned when a comparison root is missing or is
// not a directory. No traversal happens in that case.
type DirectoryNotFoundError struct {
	Path   string
	reason error
	cause  error
}

func (e *DirectoryNotFoundError) Error() string {
	if errors.Is(e.reason, errNotDirectory) {
		return fmt.Sprintf("directory not found: %s: %v", e.Path, e.reason)
	}
	return fmt.Sprintf("directory not found: %s", e.Path)
}

func (e *DirectoryNotFoundError) Unwrap() error {
	return e.cause
}

func newDirectoryNotFoundError(path string, err error) error {
	return &DirectoryNotFoundError{
		Path:   path,
		reason: err,
		cause: ErrDirectoryNotFound.
			SetError(err).
			SetData(pathErrorContext{
				Path:  path,
				Error: err,
			}),
	}
}

// TraversalError is returned when a directory could not be listed while
// walking the trees. Partial results are discarded.
type TraversalError struct {
	Path string
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("traverse %s: %v", e.Path, e.Err)
}

func (e *TraversalError) Unwrap() error {
	return ErrTraverseDirectory.
		SetError(e.Err).
		SetData(pathErrorContext{
			Path:  e.Path,
			Error: e.Err,
		})
}

func newTraversalError(path string, err error) error {
	return &TraversalError{Path: path, Err: err}
}

// DecodeError is returned when file content is not valid under the
// configured text encoding.
type DecodeError struct {
	Path     string
	Encoding string
	Offset   int
}

func (e *DecodeError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("decode %s as %s: invalid byte sequence at offset %d", e.Path, e.Encoding, e.Offset)
	}

	return fmt.Sprintf("decode %s as %s: invalid byte sequence", e.Path, e.Encoding)
}

func (e *DecodeError) Unwrap() error {
	return ErrDecodeFile.SetData(struct {
		Path     string `json:"path"`
		Encoding string `json:"encoding"`
		Offset   int    `json:"offset"`
	}{
		Path:     e.Path,
		Encoding: e.Encoding,
		Offset:   e.Offset,
	})
}

func newReadFileError(path string, err error) error {
	return ErrReadFile.
		SetError(err).
		SetData(pathErrorContext{
			Path:  path,
			Error: err,
		})
}

func newInvalidPatternError(pattern string) error {
	return ErrInvalidPattern.SetData(struct {
		Pattern string `json:"pattern"`
	}{
		Pattern: pattern,
	})
}
