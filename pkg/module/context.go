package module

import (
	"context"
	"io"
	"log/slog"

	"github.com/ssargent/characterize/pkg/source"
)

// Context is the characterization state passed down the recursion. A child
// context differs from its parent only in its ancestor chain.
type Context struct {
	ctx context.Context

	// Engine characterizes child nodes.
	Engine Characterizer
	// Sources creates child nodes.
	Sources source.Factory
	// Live holds the modules currently parsing.
	Live *Live
	// Logger receives debug output; never nil after NewContext.
	Logger *slog.Logger
	// Workers bounds parallel characterization of container members after the
	// first. Values below 2 keep everything on the calling goroutine.
	Workers int

	ancestors []int
}

// NewContext creates a root context.
func NewContext(ctx context.Context, engine Characterizer, sources source.Factory, logger *slog.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Context{
		ctx:     ctx,
		Engine:  engine,
		Sources: sources,
		Live:    NewLive(),
		Logger:  logger,
	}
}

// Context returns the Go context governing this characterization.
func (c *Context) Context() context.Context {
	return c.ctx
}

// WithAncestor returns a child context whose ancestor chain ends with the
// live module id.
func (c *Context) WithAncestor(id int) *Context {
	child := *c
	child.ancestors = append(append([]int(nil), c.ancestors...), id)
	return &child
}

// Ancestors returns the live enclosing modules, nearest first.
func (c *Context) Ancestors() []Module {
	out := make([]Module, 0, len(c.ancestors))
	for i := len(c.ancestors) - 1; i >= 0; i-- {
		if m, ok := c.Live.Lookup(c.ancestors[i]); ok {
			out = append(out, m)
		}
	}
	return out
}
