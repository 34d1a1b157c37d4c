// Package characterize is the entry point: it characterizes a file and
// returns the resulting source tree.
package characterize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/config"
	"github.com/ssargent/characterize/pkg/digest"
	"github.com/ssargent/characterize/pkg/dispatch"
	"github.com/ssargent/characterize/pkg/gzip"
	"github.com/ssargent/characterize/pkg/identify"
	"github.com/ssargent/characterize/pkg/logging"
	"github.com/ssargent/characterize/pkg/module"
	"github.com/ssargent/characterize/pkg/report"
	"github.com/ssargent/characterize/pkg/source"
)

// Options tune an Engine.
type Options struct {
	BufferKind      bytereader.BufferKind
	BufferSize      int
	FailFastLimit   int
	Workers         int
	MaxNesting      int
	MaxInflatedSize int64
	TempDir         string
	Digests         []digest.Algorithm
}

// OptionsFromConfig converts the characterize and reader sections.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	kind, err := bytereader.ParseBufferKind(cfg.Reader.BufferKind)
	if err != nil {
		return Options{}, err
	}
	algs, err := digest.ParseAlgorithms(cfg.Characterize.Digests)
	if err != nil {
		return Options{}, err
	}
	return Options{
		BufferKind:      kind,
		BufferSize:      cfg.Reader.BufferSize,
		FailFastLimit:   cfg.Characterize.FailFastLimit,
		Workers:         cfg.Characterize.Workers,
		MaxNesting:      cfg.Characterize.MaxNesting,
		MaxInflatedSize: cfg.Characterize.MaxInflatedSize,
		TempDir:         cfg.Characterize.TempDir,
		Digests:         algs,
	}, nil
}

// Engine characterizes files. It is safe for concurrent use.
type Engine struct {
	opts       Options
	registry   *module.Registry
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger  *slog.Logger
	metrics *dispatch.Metrics
}

// WithLogger sets the logger passed to modules.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// WithMetrics records dispatcher metrics.
func WithMetrics(m *dispatch.Metrics) Option {
	return func(c *engineConfig) { c.metrics = m }
}

// New creates an engine with every built-in module registered.
func New(opts Options, options ...Option) *Engine {
	var c engineConfig
	for _, o := range options {
		o(&c)
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}

	reg := module.NewRegistry()
	gzip.Register(reg, gzip.Options{
		MaxNesting:      opts.MaxNesting,
		MaxInflatedSize: opts.MaxInflatedSize,
	})

	var readerOpts []bytereader.Option
	if opts.BufferSize > 0 {
		readerOpts = append(readerOpts, bytereader.WithBufferSize(opts.BufferSize))
	}

	return &Engine{
		opts:     opts,
		registry: reg,
		dispatcher: dispatch.New(reg,
			dispatch.WithIdentifier(identify.New(nil)),
			dispatch.WithMetrics(c.metrics),
			dispatch.WithReader(opts.BufferKind, readerOpts...),
		),
		logger: c.logger,
	}
}

// Formats lists the registered format ids.
func (e *Engine) Formats() []string {
	return e.registry.Formats()
}

// Result is a characterized tree. Close releases its temporary files.
type Result struct {
	Root *source.Node
}

// Report builds the report of the tree.
func (r *Result) Report(opts ...report.Option) *report.Report {
	return report.Build(r.Root, opts...)
}

// Close releases the tree.
func (r *Result) Close() error {
	return r.Root.Release()
}

// Run characterizes the file at path. Problems in the file are recorded in
// the tree; Run fails only when the file cannot be characterized at all.
func (e *Engine) Run(ctx context.Context, path string) (*Result, error) {
	root, err := source.NewRoot(path)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, root)
}

// RunReader copies body to a temporary file and characterizes it under name.
// The temporary file is removed when the result is closed.
func (e *Engine) RunReader(ctx context.Context, name string, body io.Reader) (*Result, error) {
	if e.opts.TempDir != "" {
		if err := os.MkdirAll(e.opts.TempDir, 0750); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	f, err := os.CreateTemp(e.opts.TempDir, "characterize-upload-*.bin")
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	path := f.Name()

	size, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	root := source.New(name, path, 0, size)
	root.OnRelease(func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
	return e.run(ctx, root)
}

func (e *Engine) run(ctx context.Context, root *source.Node) (*Result, error) {
	start := time.Now()
	root.SetFailFastLimit(e.opts.FailFastLimit)

	mctx := module.NewContext(ctx, e.dispatcher, source.NewTempFactory(e.opts.TempDir), e.logger)
	mctx.Workers = e.opts.Workers

	if err := e.dispatcher.Characterize(mctx, root); err != nil {
		return nil, errors.Join(err, root.Release())
	}
	if err := digest.Tree(root, e.opts.Digests); err != nil {
		return nil, errors.Join(err, root.Release())
	}

	e.logger.Info("characterized",
		"source", root.Name(), "length", root.Length(),
		"validity", root.Validity().String(), "duration", time.Since(start))
	return &Result{Root: root}, nil
}
