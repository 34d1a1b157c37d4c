package source

import (
	"sort"
	"sync/atomic"
)

// Severity orders messages: Error sorts before Warning, Warning before Info.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// MarshalText renders the severity as its name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MessageContext says whether a message concerns the characterization
// process or the object being characterized.
type MessageContext int

const (
	Object MessageContext = iota
	Process
)

func (c MessageContext) String() string {
	if c == Process {
		return "process"
	}
	return "object"
}

// MarshalText renders the context as its name.
func (c MessageContext) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Message is a diagnostic attached to a node. Text is produced later from
// Code and Args by a formatter.
type Message struct {
	Severity Severity       `json:"severity" cbor:"severity"`
	Context  MessageContext `json:"context" cbor:"context"`
	Code     string         `json:"code" cbor:"code"`
	Args     []any          `json:"args,omitempty" cbor:"args,omitempty"`
	Sequence uint64         `json:"sequence" cbor:"sequence"`
}

var sequence atomic.Uint64

// NewMessage stamps a message with the next process-wide sequence number.
func NewMessage(sev Severity, ctx MessageContext, code string, args ...any) Message {
	return Message{
		Severity: sev,
		Context:  ctx,
		Code:     code,
		Args:     args,
		Sequence: sequence.Add(1),
	}
}

// Less orders by severity, then by sequence.
func (m Message) Less(o Message) bool {
	if m.Severity != o.Severity {
		return m.Severity < o.Severity
	}
	return m.Sequence < o.Sequence
}

// SortMessages sorts msgs in place by severity, then sequence.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Less(msgs[j])
	})
}
