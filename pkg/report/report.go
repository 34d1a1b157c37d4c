// Package report turns a characterized source tree into a serializable
// document.
package report

import (
	"sort"
	"time"

	"github.com/ssargent/characterize/pkg/module"
	"github.com/ssargent/characterize/pkg/source"
)

// Report is the characterization of one input file.
type Report struct {
	ID        string    `json:"id,omitempty" cbor:"id,omitempty"`
	Path      string    `json:"path" cbor:"path"`
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`
	Validity  string    `json:"validity" cbor:"validity"`
	Root      Source    `json:"root" cbor:"root"`
	Messages  []Message `json:"messages,omitempty" cbor:"messages,omitempty"`
}

// Source is the record of one node.
type Source struct {
	ID              string            `json:"id" cbor:"id"`
	Name            string            `json:"name" cbor:"name"`
	Offset          int64             `json:"offset" cbor:"offset"`
	Length          int64             `json:"length" cbor:"length"`
	Derived         bool              `json:"derived,omitempty" cbor:"derived,omitempty"`
	Validity        string            `json:"validity" cbor:"validity"`
	Identifications []Identification  `json:"identifications,omitempty" cbor:"identifications,omitempty"`
	Modules         []Module          `json:"modules,omitempty" cbor:"modules,omitempty"`
	Properties      []source.Property `json:"properties,omitempty" cbor:"properties,omitempty"`
	Children        []Source          `json:"children,omitempty" cbor:"children,omitempty"`
}

type Identification struct {
	ExternalID string `json:"external_id" cbor:"external_id"`
	Namespace  string `json:"namespace,omitempty" cbor:"namespace,omitempty"`
	FormatID   string `json:"format_id,omitempty" cbor:"format_id,omitempty"`
	Confidence string `json:"confidence" cbor:"confidence"`
}

type Module struct {
	ID       string `json:"id" cbor:"id"`
	Name     string `json:"name,omitempty" cbor:"name,omitempty"`
	Version  string `json:"version,omitempty" cbor:"version,omitempty"`
	Format   string `json:"format,omitempty" cbor:"format,omitempty"`
	Coverage string `json:"coverage" cbor:"coverage"`
	Validity string `json:"validity" cbor:"validity"`
}

// Message is a node message with its rendered text.
type Message struct {
	Source   string `json:"source" cbor:"source"`
	Name     string `json:"name" cbor:"name"`
	Severity string `json:"severity" cbor:"severity"`
	Context  string `json:"context" cbor:"context"`
	Code     string `json:"code" cbor:"code"`
	Args     []any  `json:"args,omitempty" cbor:"args,omitempty"`
	Sequence uint64 `json:"sequence" cbor:"sequence"`
	Text     string `json:"text" cbor:"text"`
}

// Summary is the listing view of a stored report.
type Summary struct {
	ID        string    `json:"id" cbor:"id"`
	Path      string    `json:"path" cbor:"path"`
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`
	Validity  string    `json:"validity" cbor:"validity"`
	Sources   int       `json:"sources" cbor:"sources"`
	Errors    int       `json:"errors" cbor:"errors"`
}

// Option configures Build.
type Option func(*builder)

// WithFormatter sets the message formatter. The default is English.
func WithFormatter(f Formatter) Option {
	return func(b *builder) { b.formatter = f }
}

// WithLocale selects the locale passed to the formatter.
func WithLocale(locale string) Option {
	return func(b *builder) { b.locale = locale }
}

type builder struct {
	formatter Formatter
	locale    string
	messages  []sourced
}

type sourced struct {
	node *source.Node
	msg  source.Message
}

// Build walks the tree under root.
func Build(root *source.Node, opts ...Option) *Report {
	b := &builder{formatter: English, locale: DefaultLocale}
	for _, opt := range opts {
		opt(b)
	}

	r := &Report{
		Path:      root.Path(),
		CreatedAt: time.Now().UTC(),
		Validity:  root.Validity().String(),
		Root:      b.source(root),
	}

	sort.SliceStable(b.messages, func(i, j int) bool {
		return b.messages[i].msg.Less(b.messages[j].msg)
	})
	for _, s := range b.messages {
		r.Messages = append(r.Messages, Message{
			Source:   s.node.ID().String(),
			Name:     s.node.Name(),
			Severity: s.msg.Severity.String(),
			Context:  s.msg.Context.String(),
			Code:     s.msg.Code,
			Args:     s.msg.Args,
			Sequence: s.msg.Sequence,
			Text:     b.formatter.Format(s.msg.Code, s.msg.Args, b.locale),
		})
	}
	return r
}

func (b *builder) source(n *source.Node) Source {
	s := Source{
		ID:         n.ID().String(),
		Name:       n.Name(),
		Offset:     n.Offset(),
		Length:     n.Length(),
		Derived:    n.Derived(),
		Validity:   n.Validity().String(),
		Properties: n.Properties(),
	}

	for _, id := range n.FormatIdentifications() {
		s.Identifications = append(s.Identifications, Identification{
			ExternalID: id.ExternalID,
			Namespace:  id.Namespace,
			FormatID:   id.FormatID,
			Confidence: id.Confidence.String(),
		})
	}

	for _, m := range n.Modules() {
		desc := m.Descriptor()
		s.Modules = append(s.Modules, Module{
			ID:       desc.ID,
			Name:     desc.Name,
			Version:  desc.Version,
			Format:   desc.Format.ID,
			Coverage: desc.Coverage.String(),
			Validity: desc.Validity.String(),
		})
		if rep, ok := m.(module.Reportable); ok {
			s.Properties = append(s.Properties, rep.Properties()...)
		}
	}

	for _, msg := range n.Messages() {
		b.messages = append(b.messages, sourced{node: n, msg: msg})
	}

	for _, c := range n.Children() {
		s.Children = append(s.Children, b.source(c))
	}
	return s
}

// Summarize produces the listing view of r.
func (r *Report) Summarize() Summary {
	s := Summary{
		ID:        r.ID,
		Path:      r.Path,
		CreatedAt: r.CreatedAt,
		Validity:  r.Validity,
	}
	var count func(Source)
	count = func(src Source) {
		s.Sources++
		for _, c := range src.Children {
			count(c)
		}
	}
	count(r.Root)
	for _, m := range r.Messages {
		if m.Severity == source.Error.String() {
			s.Errors++
		}
	}
	return s
}
