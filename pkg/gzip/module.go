package gzip

import (
	"errors"
	"fmt"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/module"
	"github.com/ssargent/characterize/pkg/source"
)

const (
	// FormatID is the internal format id the module is registered under.
	FormatID = "gzip"
	// Namespace qualifies the module's property names.
	Namespace = "urn:characterize:format:gzip"
	// Version of the module.
	Version = "1.0.0"

	// DefaultMaxNesting is the default number of enclosing GZIP streams below
	// which members are still characterized.
	DefaultMaxNesting = 8
)

// Message codes recorded by the module.
const (
	CodeReservedFlags     = "gzip.reservedFlags"
	CodeUnknownExtraFlags = "gzip.unknownExtraFlags"
	CodeUnknownOS         = "gzip.unknownOS"
	CodeBadExtraField     = "gzip.badExtraField"
	CodeHeaderCRCMismatch = "gzip.headerCRCMismatch"
	CodeCRC32Mismatch     = "gzip.crc32Mismatch"
	CodeISizeMismatch     = "gzip.isizeMismatch"
	CodeTruncated         = "gzip.truncated"
	CodeInvalidMember     = "gzip.invalidMember"
	CodeReadFailed        = "gzip.readFailed"
	CodeNestingLimit      = "gzip.nestingLimit"
)

// Options tune a Module.
type Options struct {
	// MaxNesting is the number of enclosing GZIP streams at which members
	// stop being characterized. Zero means DefaultMaxNesting.
	MaxNesting int
	// MaxInflatedSize caps the inflated size of a single member. Zero means
	// no limit.
	MaxInflatedSize int64
}

// Module characterizes one GZIP stream.
type Module struct {
	desc    source.Descriptor
	opts    Options
	members []Member

	// failed is set when the stream could not be framed at all; truncated
	// when framing stopped after at least one member.
	failed    bool
	truncated bool
}

// New creates a module instance.
func New(opts Options) *Module {
	if opts.MaxNesting <= 0 {
		opts.MaxNesting = DefaultMaxNesting
	}
	return &Module{
		desc: source.Descriptor{
			ID:       FormatID,
			Name:     "GZIP",
			Version:  Version,
			Coverage: source.Selective,
		},
		opts: opts,
	}
}

// Register binds the GZIP format to a fresh module per lookup.
func Register(reg *module.Registry, opts Options) {
	reg.Register(FormatID, func() any { return New(opts) })
}

// Descriptor implements module.Module.
func (m *Module) Descriptor() *source.Descriptor { return &m.desc }

// Members returns the completed members in stream order.
func (m *Module) Members() []Member {
	return append([]Member(nil), m.members...)
}

// Parse implements module.Module.
func (m *Module) Parse(ctx *module.Context, r *bytereader.Reader, n *source.Node) (int64, error) {
	start := r.Position()
	r.SetByteOrder(bytereader.LittleEndian)

	liveID := ctx.Live.Register(m)
	defer ctx.Live.Remove(liveID)
	childCtx := ctx.WithAncestor(liveID)

	recurse := ctx.Engine != nil && ctx.Sources != nil
	if depth := m.nesting(ctx); recurse && depth >= m.opts.MaxNesting {
		recurse = false
		n.AddMessage(source.NewMessage(source.Warning, source.Process, CodeNestingLimit, depth, m.opts.MaxNesting))
	}

	workers := newPool(ctx.Workers)
	for index := 1; r.Position() < n.End(); index++ {
		offset := r.Position()
		mem, child, err := m.readMember(ctx, r, n, index, recurse)
		if err != nil {
			if !module.Structural(err) {
				return r.Position() - start, finish(workers, err)
			}
			if index == 1 {
				m.failed = true
				return r.Position() - start, finish(workers, err)
			}
			m.truncated = true
			m.recordStop(n, index, offset, r.Position(), err)
			break
		}
		m.members = append(m.members, mem)

		if child == nil {
			continue
		}
		if index == 1 || workers == nil {
			if err := ctx.Engine.Characterize(childCtx, child); err != nil {
				return r.Position() - start, finish(workers, err)
			}
			continue
		}
		workers.Go(func() error {
			return ctx.Engine.Characterize(childCtx, child)
		})
	}

	if len(m.members) == 0 {
		m.failed = true
		return r.Position() - start, finish(workers,
			fmt.Errorf("no gzip member at offset %d: %w", start, bytereader.ErrEndOfFile))
	}
	return r.Position() - start, finish(workers, nil)
}

// finish waits for outstanding members and combines their failure with err.
func finish(workers *pool, err error) error {
	if werr := workers.Wait(); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}

// Validate implements module.Validator.
func (m *Module) Validate(_ *module.Context, _ *source.Node) (source.Validity, error) {
	if m.failed || m.truncated || len(m.members) == 0 {
		return source.False, nil
	}
	for _, mem := range m.members {
		if !mem.Valid() {
			return source.False, nil
		}
	}
	return source.True, nil
}

// Properties implements module.Reportable.
func (m *Module) Properties() []source.Property {
	members := source.Property{Name: "Members", Namespace: Namespace}
	for _, mem := range m.members {
		members.Children = append(members.Children, mem.Properties())
	}
	return []source.Property{
		{Name: "MemberCount", Namespace: Namespace, Value: len(m.members)},
		members,
	}
}

// nesting counts the GZIP modules enclosing this one.
func (m *Module) nesting(ctx *module.Context) int {
	depth := 0
	for _, a := range ctx.Ancestors() {
		if _, ok := a.(*Module); ok {
			depth++
		}
	}
	return depth
}

// fail marks mem as having failed check and records the problem on n.
func (m *Module) fail(n *source.Node, mem *Member, check Check, code, field string, offset int64, values ...any) {
	mem.Errors |= check
	fve := &module.FieldValidationError{
		Code:   code,
		Field:  field,
		Offset: offset,
		Args:   append([]any{mem.Index, offset}, values...),
	}
	fve.Record(n)
}

// recordStop records why framing stopped after at least one member.
func (m *Module) recordStop(n *source.Node, index int, memberOffset, position int64, err error) {
	var formatErr *module.FormatError
	switch {
	case errors.As(err, &formatErr):
		n.AddMessage(source.NewMessage(source.Error, source.Object, CodeInvalidMember,
			index, formatErr.Offset, formatErr.Reason))
	case errors.Is(err, bytereader.ErrEndOfFile):
		n.AddMessage(source.NewMessage(source.Error, source.Object, CodeTruncated,
			index, memberOffset, position))
	default:
		n.AddMessage(source.NewMessage(source.Error, source.Object, CodeReadFailed,
			index, memberOffset, fmt.Sprint(err)))
	}
}
