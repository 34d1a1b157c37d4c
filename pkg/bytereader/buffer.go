package bytereader

import (
	"fmt"
	"math/bits"
	"strings"
)

// BufferKind selects how the active window is allocated.
type BufferKind int

const (
	// Heap allocates the window as an ordinary slice.
	Heap BufferKind = iota
	// Native allocates the window outside the Go heap.
	Native
	// Mapped maps the whole file read-only.
	Mapped
)

// DefaultBufferSize is the window size used when none is given.
const DefaultBufferSize = 64 * 1024

// DefaultMaxMappedSize is the largest file Mapped will map.
var DefaultMaxMappedSize int64 = func() int64 {
	if bits.UintSize == 32 {
		return 256 << 20
	}
	return 1 << 30
}()

func (k BufferKind) String() string {
	switch k {
	case Heap:
		return "heap"
	case Native:
		return "native"
	case Mapped:
		return "mapped"
	default:
		return fmt.Sprintf("BufferKind(%d)", int(k))
	}
}

// ParseBufferKind converts a configuration string into a BufferKind.
func ParseBufferKind(s string) (BufferKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heap":
		return Heap, nil
	case "native", "direct", "":
		return Native, nil
	case "mapped", "mmap":
		return Mapped, nil
	default:
		return Heap, fmt.Errorf("unknown buffer kind: %q", s)
	}
}

// ByteOrder is the order multi-byte values are assembled in.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little-endian"
	}
	return "big-endian"
}

// buffer owns the memory backing a window.
type buffer interface {
	Bytes() []byte
	Release() error
}

type heapBuffer struct {
	b []byte
}

func (h *heapBuffer) Bytes() []byte { return h.b }

func (h *heapBuffer) Release() error {
	h.b = nil
	return nil
}

func newWindow(kind BufferKind, size int) (buffer, error) {
	if kind == Native {
		return allocNative(size)
	}
	return &heapBuffer{b: make([]byte, size)}, nil
}
