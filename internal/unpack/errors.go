package unpack

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrIllegalPath is returned for archive entries that would land outside the
// destination directory.
var ErrIllegalPath = errors.New("illegal path in archive")

// UnsupportedFormatError is returned before any destination I/O when the
// archive extension is not recognised.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("don't know how to extract '%s'", filepath.Base(e.Path))
}

// Error wraps a failure with the state the unpacker was in.
type Error struct {
	Archive string
	State   State
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("unpack %s: %s: %v", filepath.Base(e.Archive), e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
