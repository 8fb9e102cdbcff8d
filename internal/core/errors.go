package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySource indicates the source parsed correctly but contains no rows.
var ErrEmptySource = errors.New("source has no rows")

// ErrUnsupportedFormat indicates the source file type cannot be read.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// HeaderNotFoundError is returned when no row contains the header marker.
type HeaderNotFoundError struct {
	Marker string
}

func (e *HeaderNotFoundError) Error() string {
	return fmt.Sprintf("header not found: no row contains %q", e.Marker)
}

// MissingColumnError is returned when descriptive roles could not be resolved.
type MissingColumnError struct {
	Roles []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column for role(s): %s", strings.Join(e.Roles, ", "))
}

// SourceReadError wraps any failure to read the tabular source.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %q: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// NewSourceReadError creates a SourceReadError for path.
func NewSourceReadError(path string, err error) *SourceReadError {
	return &SourceReadError{Path: path, Err: err}
}
