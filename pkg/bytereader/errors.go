package bytereader

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfFile is returned when a read runs past the end of the file.
	ErrEndOfFile = errors.New("end of file")
	// ErrNotFound is returned by Open when the file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidOffset is returned by SetPosition for offsets outside the file.
	ErrInvalidOffset = errors.New("offset out of range")
	// ErrClosed is returned by reads on a closed Reader.
	ErrClosed = errors.New("reader closed")
)

// IOError wraps a failure of the underlying file.
type IOError struct {
	Op     string
	Path   string
	Offset int64
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s at offset %d: %v", e.Op, e.Path, e.Offset, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
