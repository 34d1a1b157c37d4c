// Package module defines the capabilities a format module offers to the
// dispatcher, the error taxonomy modules report through, and the explicit
// characterization context passed down the recursion.
package module

import (
	"fmt"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/source"
)

// Module parses a source of a particular format.
type Module interface {
	source.Attached

	// Parse reads the node's byte range from r and returns the number of
	// bytes consumed. Structural failures are returned as *FormatError,
	// *bytereader.IOError or bytereader.ErrEndOfFile; field problems are
	// recorded on the node instead.
	Parse(ctx *Context, r *bytereader.Reader, n *source.Node) (int64, error)
}

// AsModule returns entity as a Module, or an error wrapping ErrNotModule
// that names its type.
func AsModule(entity any) (Module, error) {
	m, ok := entity.(Module)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotModule, entity)
	}
	return m, nil
}

// Validator is implemented by modules that compute a verdict after parsing.
type Validator interface {
	Validate(ctx *Context, n *source.Node) (source.Validity, error)
}

// Reportable is implemented by modules that expose parsed properties.
type Reportable interface {
	Properties() []source.Property
}

// Characterizer identifies and dispatches a node. Container modules call it
// for each child they create.
type Characterizer interface {
	Characterize(ctx *Context, n *source.Node) error
}
