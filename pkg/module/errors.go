package module

import (
	"errors"
	"fmt"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/source"
)

var (
	// ErrModuleNotFound is returned by a Factory for unregistered formats.
	ErrModuleNotFound = errors.New("module not found")
	// ErrNotModule is returned when a registered entity is not a Module.
	ErrNotModule = errors.New("not a format module")
)

// FormatError is a structural violation, such as a bad magic number or an
// unsupported mandatory field. It aborts the current stream or member.
type FormatError struct {
	Format string
	Offset int64
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: invalid format at offset %d: %s", e.Format, e.Offset, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// FieldValidationError is a non-fatal field problem such as a checksum, size,
// reserved bit or enumeration mismatch. It is recorded, never returned up the
// stack.
type FieldValidationError struct {
	Code   string
	Field  string
	Offset int64
	Args   []any
}

func (e *FieldValidationError) Error() string {
	return fmt.Sprintf("%s: field %s at offset %d: %v", e.Code, e.Field, e.Offset, e.Args)
}

// Record attaches the error to n as an Error-severity object message.
func (e *FieldValidationError) Record(n *source.Node) bool {
	return n.AddMessage(source.NewMessage(source.Error, source.Object, e.Code, e.Args...))
}

// Kind names the class of a structural error for diagnostics.
func Kind(err error) string {
	var formatErr *FormatError
	var ioErr *bytereader.IOError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &formatErr):
		return "FormatError"
	case errors.Is(err, bytereader.ErrEndOfFile):
		return "EndOfFile"
	case errors.As(err, &ioErr):
		return "IOError"
	default:
		return "Error"
	}
}

// Structural reports whether err is one the dispatcher converts into a node
// message rather than propagating.
func Structural(err error) bool {
	switch Kind(err) {
	case "FormatError", "EndOfFile", "IOError":
		return true
	default:
		return false
	}
}

// Offset extracts the file offset carried by a structural error, if any.
func Offset(err error) (int64, bool) {
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		return formatErr.Offset, true
	}
	var ioErr *bytereader.IOError
	if errors.As(err, &ioErr) {
		return ioErr.Offset, true
	}
	return 0, false
}
