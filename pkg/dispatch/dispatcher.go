// Package dispatch runs the modules a source has been identified as.
package dispatch

import (
	"fmt"
	"time"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/module"
	"github.com/ssargent/characterize/pkg/source"
)

// Message codes recorded by the dispatcher.
const (
	CodeModuleNotFound  = "dispatch.moduleNotFound"
	CodeNotFormatModule = "dispatch.notFormatModule"
	CodeParseFailed     = "dispatch.parseFailed"
	CodeValidateFailed  = "dispatch.validateFailed"
	CodeOpenFailed      = "dispatch.openFailed"
	CodeIdentifyFailed  = "dispatch.identifyFailed"
)

// Identifier produces presumptive identifications for a node.
type Identifier interface {
	Identify(r *bytereader.Reader, n *source.Node) ([]source.FormatIdentification, error)
}

// Dispatcher resolves a node's identifications to modules and runs them.
type Dispatcher struct {
	factory    module.Factory
	identifier Identifier
	metrics    *Metrics
	kind       bytereader.BufferKind
	readerOpts []bytereader.Option
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithIdentifier sets the identifier used for nodes with no identifications.
func WithIdentifier(id Identifier) Option {
	return func(d *Dispatcher) { d.identifier = id }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithReader sets how node readers are opened.
func WithReader(kind bytereader.BufferKind, opts ...bytereader.Option) Option {
	return func(d *Dispatcher) {
		d.kind = kind
		d.readerOpts = opts
	}
}

// New creates a dispatcher resolving modules through factory.
func New(factory module.Factory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		factory: factory,
		kind:    bytereader.Native,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Characterize opens a reader over n, identifies it if it carries no
// identifications yet, and executes the resolved modules. The reader is
// closed on every path.
func (d *Dispatcher) Characterize(ctx *module.Context, n *source.Node) error {
	if err := ctx.Context().Err(); err != nil {
		return err
	}
	defer d.metrics.RecordSource(n)

	r, err := bytereader.Open(n.Path(), d.kind, bytereader.BigEndian, d.readerOpts...)
	if err != nil {
		n.AddMessage(source.NewMessage(source.Error, source.Process, CodeOpenFailed, n.Path(), err.Error()))
		return nil
	}
	defer r.Close()

	if len(n.FormatIdentifications()) == 0 && d.identifier != nil {
		if err := r.SetPosition(n.Offset()); err != nil {
			n.AddMessage(source.NewMessage(source.Error, source.Process, CodeIdentifyFailed, err.Error()))
			return nil
		}
		ids, err := d.identifier.Identify(r, n)
		if err != nil {
			if !module.Structural(err) {
				return fmt.Errorf("identify %s: %w", n.Name(), err)
			}
			n.AddMessage(source.NewMessage(source.Error, source.Process, CodeIdentifyFailed, err.Error()))
		}
		n.AddFormatIdentification(ids...)
	}

	return d.Execute(ctx, n, r)
}

// Execute runs every distinct module resolved from n's identifications.
// Identifications are deduplicated by resolved format id and modules by
// identity, so each module runs at most once per node. Structural parse
// failures become node messages; only unexpected errors are returned.
func (d *Dispatcher) Execute(ctx *module.Context, n *source.Node, r *bytereader.Reader) error {
	formats := make(map[string]bool)
	visited := make(map[string]bool)

	for _, id := range n.FormatIdentifications() {
		if !id.Resolved() || formats[id.FormatID] {
			continue
		}
		formats[id.FormatID] = true

		entity, err := d.factory.Lookup(id.FormatID)
		if err != nil {
			n.AddMessage(source.NewMessage(source.Error, source.Process, CodeModuleNotFound, id.FormatID, id.ExternalID))
			continue
		}
		m, err := module.AsModule(entity)
		if err != nil {
			ctx.Logger.Debug("skipping candidate", "format", id.FormatID, "error", err)
			n.AddMessage(source.NewMessage(source.Error, source.Process, CodeNotFormatModule, id.FormatID, fmt.Sprintf("%T", entity)))
			continue
		}

		key := identity(m)
		if visited[key] {
			continue
		}
		visited[key] = true

		if err := d.run(ctx, n, r, m, id.FormatID); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) run(ctx *module.Context, n *source.Node, r *bytereader.Reader, m module.Module, formatID string) error {
	desc := m.Descriptor()
	if desc.Format.ID == "" {
		desc.Format = source.Format{ID: formatID}
	}
	n.AttachModule(m)

	start := time.Now()
	if err := r.SetPosition(n.Offset()); err != nil {
		d.structural(n, r, desc, err)
		d.metrics.RecordModuleRun(desc.Format.ID, statusStructural, time.Since(start))
		return nil
	}

	consumed, err := m.Parse(ctx, r, n)
	if err != nil {
		if !module.Structural(err) {
			d.metrics.RecordModuleRun(desc.Format.ID, statusError, time.Since(start))
			return fmt.Errorf("%s: parse %s: %w", desc.ID, n.Name(), err)
		}
		d.structural(n, r, desc, err)
		d.metrics.RecordModuleRun(desc.Format.ID, statusStructural, time.Since(start))
		ctx.Logger.Debug("parse failed",
			"module", desc.ID, "source", n.Name(), "kind", module.Kind(err), "error", err)
		return nil
	}

	if v, ok := m.(module.Validator); ok {
		validity, err := v.Validate(ctx, n)
		if err != nil {
			if !module.Structural(err) {
				d.metrics.RecordModuleRun(desc.Format.ID, statusError, time.Since(start))
				return fmt.Errorf("%s: validate %s: %w", desc.ID, n.Name(), err)
			}
			n.AddMessage(source.NewMessage(source.Error, source.Object, CodeValidateFailed,
				module.Kind(err), desc.ID, err.Error()))
			validity = source.False
		}
		desc.Validity = validity
	}

	d.metrics.RecordModuleRun(desc.Format.ID, statusSuccess, time.Since(start))
	ctx.Logger.Debug("module complete",
		"module", desc.ID, "source", n.Name(), "consumed", consumed,
		"validity", desc.Validity.String(), "duration", time.Since(start))
	return nil
}

// structural records a structural failure as an Error message carrying its
// kind and offset, and marks the module invalid.
func (d *Dispatcher) structural(n *source.Node, r *bytereader.Reader, desc *source.Descriptor, err error) {
	offset, ok := module.Offset(err)
	if !ok {
		offset = r.Position()
	}
	n.AddMessage(source.NewMessage(source.Error, source.Object, CodeParseFailed,
		module.Kind(err), offset, desc.ID, err.Error()))
	desc.Validity = source.False
}

func identity(m module.Module) string {
	if id := m.Descriptor().ID; id != "" {
		return id
	}
	return fmt.Sprintf("%T", m)
}
