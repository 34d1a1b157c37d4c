package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/source"
)

type fakeModule struct {
	desc source.Descriptor
}

func (f *fakeModule) Descriptor() *source.Descriptor { return &f.desc }

func (f *fakeModule) Parse(*Context, *bytereader.Reader, *source.Node) (int64, error) {
	return 0, nil
}

func TestKind(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       string
		structural bool
	}{
		{"nil", nil, "", false},
		{"format", &FormatError{Format: "gzip", Reason: "bad magic"}, "FormatError", true},
		{"wrapped format", fmt.Errorf("member 2: %w", &FormatError{}), "FormatError", true},
		{"eof", bytereader.ErrEndOfFile, "EndOfFile", true},
		{"io", &bytereader.IOError{Op: "read", Err: errors.New("boom")}, "IOError", true},
		{"other", errors.New("boom"), "Error", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
			assert.Equal(t, tt.structural, Structural(tt.err))
		})
	}
}

func TestOffset(t *testing.T) {
	off, ok := Offset(&FormatError{Offset: 42})
	assert.True(t, ok)
	assert.Equal(t, int64(42), off)

	off, ok = Offset(&bytereader.IOError{Offset: 7})
	assert.True(t, ok)
	assert.Equal(t, int64(7), off)

	_, ok = Offset(bytereader.ErrEndOfFile)
	assert.False(t, ok)
}

func TestFieldValidationError_Record(t *testing.T) {
	n := source.New("n", "", 0, 0)
	fve := &FieldValidationError{Code: "gzip.crc32Mismatch", Field: "crc32", Offset: 10, Args: []any{2, int64(10)}}

	assert.True(t, fve.Record(n))
	msgs := n.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, source.Error, msgs[0].Severity)
	assert.Equal(t, "gzip.crc32Mismatch", msgs[0].Code)
	assert.Equal(t, []any{2, int64(10)}, msgs[0].Args)
	assert.Contains(t, fve.Error(), "crc32")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("gzip", func() any { return &fakeModule{desc: source.Descriptor{ID: "gzip"}} })
	r.Register("format-only", func() any { return source.Format{ID: "format-only"} })

	got, err := r.Lookup("gzip")
	require.NoError(t, err)
	m, ok := got.(Module)
	require.True(t, ok)
	assert.Equal(t, "gzip", m.Descriptor().ID)

	again, err := r.Lookup("gzip")
	require.NoError(t, err)
	assert.NotSame(t, got, again)

	other, err := r.Lookup("format-only")
	require.NoError(t, err)
	_, err = AsModule(other)
	assert.ErrorIs(t, err, ErrNotModule)
	assert.Contains(t, err.Error(), "source.Format")

	asModule, err := AsModule(got)
	require.NoError(t, err)
	assert.Same(t, m, asModule)

	_, err = r.Lookup("tiff")
	assert.ErrorIs(t, err, ErrModuleNotFound)

	assert.Equal(t, []string{"format-only", "gzip"}, r.Formats())
}

func TestLive(t *testing.T) {
	l := NewLive()

	var wg sync.WaitGroup
	ids := make([]int, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = l.Register(&fakeModule{})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, l.Len())

	seen := make(map[int]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	l.Remove(ids[0])
	_, ok := l.Lookup(ids[0])
	assert.False(t, ok)
	assert.Equal(t, 49, l.Len())
}

func TestContext_Ancestors(t *testing.T) {
	ctx := NewContext(context.Background(), nil, nil, nil)
	require.NotNil(t, ctx.Logger)

	outer := &fakeModule{desc: source.Descriptor{ID: "outer"}}
	inner := &fakeModule{desc: source.Descriptor{ID: "inner"}}

	outerCtx := ctx.WithAncestor(ctx.Live.Register(outer))
	innerID := ctx.Live.Register(inner)
	innerCtx := outerCtx.WithAncestor(innerID)

	assert.Empty(t, ctx.Ancestors())
	assert.Equal(t, []Module{outer}, outerCtx.Ancestors())
	assert.Equal(t, []Module{inner, outer}, innerCtx.Ancestors())

	ctx.Live.Remove(innerID)
	assert.Equal(t, []Module{outer}, innerCtx.Ancestors())
	assert.Same(t, ctx.Live, innerCtx.Live)
}
