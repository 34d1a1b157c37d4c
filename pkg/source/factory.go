package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Factory creates child nodes for container modules.
type Factory interface {
	// Range creates a child spanning [offset, offset+length) of the parent's
	// backing file.
	Range(parent *Node, name string, offset, length int64) (*Node, error)
	// Materialize returns a spool that collects decoded bytes into a new
	// temporary source.
	Materialize(parent *Node, name string) (Spool, error)
}

// Spool receives the bytes of a derived source. Exactly one of Commit or
// Discard must be called.
type Spool interface {
	io.Writer
	// Commit finishes the spool and attaches the resulting node to the parent.
	Commit() (*Node, error)
	// Discard drops the spool and removes its backing file.
	Discard() error
}

// ErrRangeOutOfBounds is returned when a requested child range does not lie
// within its parent.
var ErrRangeOutOfBounds = errors.New("child range outside parent")

// TempFactory materializes derived sources as temporary files. The files are
// removed when the owning tree is released.
type TempFactory struct {
	Dir string
}

// NewTempFactory creates a factory writing under dir; an empty dir means the
// system temporary directory.
func NewTempFactory(dir string) *TempFactory {
	return &TempFactory{Dir: dir}
}

// Range implements Factory.
func (f *TempFactory) Range(parent *Node, name string, offset, length int64) (*Node, error) {
	if offset < parent.Offset() || length < 0 || offset+length > parent.End() {
		return nil, fmt.Errorf("%w: [%d,%d) not in [%d,%d)", ErrRangeOutOfBounds,
			offset, offset+length, parent.Offset(), parent.End())
	}
	child := New(name, parent.Path(), offset, length)
	return parent.AddChild(child), nil
}

// Materialize implements Factory.
func (f *TempFactory) Materialize(parent *Node, name string) (Spool, error) {
	if f.Dir != "" {
		if err := os.MkdirAll(f.Dir, 0750); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	file, err := os.CreateTemp(f.Dir, "characterize-*.bin")
	if err != nil {
		return nil, fmt.Errorf("create temp source: %w", err)
	}
	return &tempSpool{
		parent: parent,
		name:   name,
		file:   file,
		w:      bufio.NewWriterSize(file, 64*1024),
	}, nil
}

type tempSpool struct {
	parent *Node
	name   string
	file   *os.File
	w      *bufio.Writer
	size   int64
	done   bool
}

func (s *tempSpool) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.size += int64(n)
	return n, err
}

func (s *tempSpool) Commit() (*Node, error) {
	if s.done {
		return nil, errors.New("spool already finished")
	}
	s.done = true

	path := s.file.Name()
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("flush temp source: %w", err)
	}
	if err := s.file.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close temp source: %w", err)
	}

	child := New(s.name, path, 0, s.size)
	child.derived = true
	child.OnRelease(func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
	return s.parent.AddChild(child), nil
}

func (s *tempSpool) Discard() error {
	if s.done {
		return nil
	}
	s.done = true
	path := s.file.Name()
	closeErr := s.file.Close()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}
