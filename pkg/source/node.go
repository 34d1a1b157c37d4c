package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/segmentio/ksuid"
)

// FailFastExceeded is the code of the message recorded once a node's
// error limit has been exceeded.
const FailFastExceeded = "source.failFastLimitExceeded"

// Node is one source in a characterization tree: a file, or a byte range
// derived from one. Children, identifications, modules, messages and
// properties are append-only.
type Node struct {
	mu sync.RWMutex

	id      ksuid.KSUID
	name    string
	path    string
	offset  int64
	length  int64
	derived bool

	parent   *Node
	children []*Node

	identifications []FormatIdentification
	modules         []Attached
	messages        []Message
	properties      []Property

	failFast   int
	errors     int
	suppressed bool

	cleanup []func() error
}

// New creates a detached node over [offset, offset+length) of path.
func New(name, path string, offset, length int64) *Node {
	return &Node{
		id:     ksuid.New(),
		name:   name,
		path:   path,
		offset: offset,
		length: length,
	}
}

// NewRoot creates a node spanning the whole file at path.
func NewRoot(path string) (*Node, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", path)
	}
	return New(filepath.Base(path), path, 0, st.Size()), nil
}

func (n *Node) ID() ksuid.KSUID { return n.id }
func (n *Node) Name() string    { return n.name }
func (n *Node) Path() string    { return n.path }
func (n *Node) Offset() int64   { return n.offset }
func (n *Node) Length() int64   { return n.length }
func (n *Node) End() int64      { return n.offset + n.length }

// Derived reports whether the node is backed by a temporary file holding
// bytes decoded from its parent.
func (n *Node) Derived() bool { return n.derived }

// Parent returns the enclosing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Depth is 0 for a root.
func (n *Node) Depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// AddChild appends child and points it back at n. The child inherits the
// fail-fast limit.
func (n *Node) AddChild(child *Node) *Node {
	n.mu.Lock()
	n.children = append(n.children, child)
	limit := n.failFast
	n.mu.Unlock()

	child.mu.Lock()
	child.parent = n
	if child.failFast == 0 {
		child.failFast = limit
	}
	child.mu.Unlock()
	return child
}

// Children returns the children in insertion order.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]*Node(nil), n.children...)
}

// SetFailFastLimit sets the number of error messages accepted before further
// messages are suppressed. Zero disables the limit.
func (n *Node) SetFailFastLimit(limit int) {
	n.mu.Lock()
	n.failFast = limit
	n.mu.Unlock()
}

// FailFastLimit returns the current limit.
func (n *Node) FailFastLimit() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.failFast
}

// AddMessage records m. It returns false if the message was suppressed by the
// fail-fast limit.
func (n *Node) AddMessage(m Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.suppressed {
		return false
	}
	if m.Severity == Error && n.failFast > 0 && n.errors >= n.failFast {
		n.suppressed = true
		n.messages = append(n.messages, NewMessage(Info, Process, FailFastExceeded, n.failFast))
		return false
	}
	if m.Severity == Error {
		n.errors++
	}
	n.messages = append(n.messages, m)
	return true
}

// Messages returns the node's messages ordered by severity, then sequence.
func (n *Node) Messages() []Message {
	n.mu.RLock()
	out := append([]Message(nil), n.messages...)
	n.mu.RUnlock()
	SortMessages(out)
	return out
}

// HasErrors reports whether any Error message was recorded.
func (n *Node) HasErrors() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.errors > 0
}

// AddFormatIdentification records presumptive identifications.
func (n *Node) AddFormatIdentification(ids ...FormatIdentification) {
	n.mu.Lock()
	n.identifications = append(n.identifications, ids...)
	n.mu.Unlock()
}

// FormatIdentifications returns the recorded identifications.
func (n *Node) FormatIdentifications() []FormatIdentification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]FormatIdentification(nil), n.identifications...)
}

// AttachModule records a module that characterized this node.
func (n *Node) AttachModule(m Attached) {
	n.mu.Lock()
	n.modules = append(n.modules, m)
	n.mu.Unlock()
}

// Modules returns the attached modules in attachment order.
func (n *Node) Modules() []Attached {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Attached(nil), n.modules...)
}

// AddProperty records a node-level property.
func (n *Node) AddProperty(p ...Property) {
	n.mu.Lock()
	n.properties = append(n.properties, p...)
	n.mu.Unlock()
}

// Properties returns the node-level properties.
func (n *Node) Properties() []Property {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Property(nil), n.properties...)
}

// Validity aggregates the verdicts of the Inclusive modules with the node's
// error messages. Selective modules do not contribute.
func (n *Node) Validity() Validity {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.errors > 0 {
		return False
	}
	inclusive := 0
	allTrue := true
	for _, m := range n.modules {
		d := m.Descriptor()
		if d.Coverage != Inclusive {
			continue
		}
		inclusive++
		switch d.Validity {
		case False:
			return False
		case Undetermined:
			allTrue = false
		}
	}
	if inclusive > 0 && allTrue {
		return True
	}
	return Undetermined
}

// OnRelease registers fn to run when the node is released.
func (n *Node) OnRelease(fn func() error) {
	n.mu.Lock()
	n.cleanup = append(n.cleanup, fn)
	n.mu.Unlock()
}

// Release frees every temporary resource in the subtree, children first.
func (n *Node) Release() error {
	var errs []error
	for _, c := range n.Children() {
		errs = append(errs, c.Release())
	}

	n.mu.Lock()
	cleanup := n.cleanup
	n.cleanup = nil
	n.mu.Unlock()

	for i := len(cleanup) - 1; i >= 0; i-- {
		errs = append(errs, cleanup[i]())
	}
	return errors.Join(errs...)
}

// Walk visits the subtree depth-first, parents before children.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children() {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}
