package bytereader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

type options struct {
	bufferSize    int
	maxMappedSize int64
}

// Option configures a Reader.
type Option func(*options)

// WithBufferSize sets the window size for Heap and Native readers.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithMaxMappedSize sets the largest file a Mapped reader will map. It is
// capped at the largest slice length the platform can address.
func WithMaxMappedSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxMappedSize = min(n, int64(math.MaxInt))
		}
	}
}

// Reader reads typed values from a file through a bounded window.
type Reader struct {
	path  string
	file  *os.File
	kind  BufferKind
	order ByteOrder
	size  int64

	buf          buffer
	data         []byte
	n            int   // valid bytes in data
	cursor       int   // next byte in data
	bufferOffset int64 // file offset of data[0]
	channelPos   int64 // file offset the next refill reads from

	closed bool
}

// Open opens path for reading with the given window strategy and initial
// byte order.
func Open(path string, kind BufferKind, order ByteOrder, opts ...Option) (*Reader, error) {
	o := options{
		bufferSize:    DefaultBufferSize,
		maxMappedSize: DefaultMaxMappedSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
		}
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "stat", Path: path, Err: err}
	}

	r := &Reader{
		path:  path,
		file:  f,
		kind:  kind,
		order: order,
		size:  st.Size(),
	}

	if kind == Mapped {
		if r.size > 0 && r.size <= o.maxMappedSize {
			if b, err := mapFile(f, r.size); err == nil {
				r.buf = b
				r.data = b.Bytes()
				r.n = len(r.data)
				r.channelPos = r.size
				return r, nil
			}
		}
		r.kind = Native
	}

	b, err := newWindow(r.kind, o.bufferSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.buf = b
	r.data = b.Bytes()

	if err := r.refill(); err != nil && !errors.Is(err, ErrEndOfFile) {
		r.Close()
		return nil, err
	}
	return r, nil
}

// refill loads the next window starting at channelPos.
func (r *Reader) refill() error {
	if r.kind == Mapped {
		return ErrEndOfFile
	}
	read, err := r.file.ReadAt(r.data, r.channelPos)
	if err != nil && !errors.Is(err, io.EOF) {
		return &IOError{Op: "read", Path: r.path, Offset: r.channelPos, Err: err}
	}
	if read == 0 {
		return ErrEndOfFile
	}
	r.channelPos += int64(read)
	r.bufferOffset = r.channelPos - int64(read)
	r.n = read
	r.cursor = 0
	return nil
}

// readUnsigned assembles width bytes in the current byte order. On failure the
// position is left where it was.
func (r *Reader) readUnsigned(width int) (uint64, error) {
	if r.closed {
		return 0, ErrClosed
	}

	if r.n-r.cursor >= width {
		v := decode(r.data[r.cursor:r.cursor+width], r.order)
		r.cursor += width
		return v, nil
	}

	start := r.Position()
	var v uint64
	for i := 0; i < width; i++ {
		if r.cursor >= r.n {
			if err := r.refill(); err != nil {
				return 0, r.restore(start, err)
			}
		}
		b := uint64(r.data[r.cursor])
		r.cursor++
		if r.order == LittleEndian {
			v |= b << (8 * uint(i))
		} else {
			v = v<<8 | b
		}
	}
	return v, nil
}

func decode(b []byte, order ByteOrder) uint64 {
	var v uint64
	if order == LittleEndian {
		for i := len(b) - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
		return v
	}
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// ReadU8 reads an unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	v, err := r.readUnsigned(1)
	return uint8(v), err
}

// ReadI8 reads a signed byte.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.readUnsigned(1)
	return int8(v), err
}

// ReadU16 reads an unsigned 16-bit value.
func (r *Reader) ReadU16() (uint16, error) {
	v, err := r.readUnsigned(2)
	return uint16(v), err
}

// ReadI16 reads a signed 16-bit value.
func (r *Reader) ReadI16() (int16, error) {
	v, err := r.readUnsigned(2)
	return int16(v), err
}

// ReadU32 reads an unsigned 32-bit value.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := r.readUnsigned(4)
	return uint32(v), err
}

// ReadI32 reads a signed 32-bit value.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.readUnsigned(4)
	return int32(v), err
}

// ReadU64 reads an unsigned 64-bit value.
func (r *Reader) ReadU64() (uint64, error) {
	return r.readUnsigned(8)
}

// ReadI64 reads a signed 64-bit value.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.readUnsigned(8)
	return int64(v), err
}

// ReadF32 reads an IEEE-754 single precision value.
func (r *Reader) ReadF32() (float32, error) {
	v, err := r.readUnsigned(4)
	return math.Float32frombits(uint32(v)), err
}

// ReadF64 reads an IEEE-754 double precision value.
func (r *Reader) ReadF64() (float64, error) {
	v, err := r.readUnsigned(8)
	return math.Float64frombits(v), err
}

// ReadChar16 reads one UTF-16 code unit.
func (r *Reader) ReadChar16() (rune, error) {
	v, err := r.readUnsigned(2)
	return rune(uint16(v)), err
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if n < 0 {
		return nil, fmt.Errorf("negative length %d", n)
	}
	start := r.Position()
	out := make([]byte, n)
	for off := 0; off < n; {
		if r.cursor >= r.n {
			if err := r.refill(); err != nil {
				return nil, r.restore(start, err)
			}
		}
		c := copy(out[off:], r.data[r.cursor:r.n])
		r.cursor += c
		off += c
	}
	return out, nil
}

// Read implements io.Reader. It returns io.EOF at the end of the file.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if r.cursor >= r.n {
		if err := r.refill(); err != nil {
			if errors.Is(err, ErrEndOfFile) {
				return 0, io.EOF
			}
			return 0, err
		}
	}
	c := copy(p, r.data[r.cursor:r.n])
	r.cursor += c
	return c, nil
}

// ReadByte implements io.ByteReader so decompressors consume exactly the
// bytes they need. It returns io.EOF at the end of the file.
func (r *Reader) ReadByte() (byte, error) {
	v, err := r.readUnsigned(1)
	if errors.Is(err, ErrEndOfFile) {
		return 0, io.EOF
	}
	return byte(v), err
}

// restore moves back to start after a failed read and returns err, joined
// with any failure to move back.
func (r *Reader) restore(start int64, err error) error {
	if rerr := r.SetPosition(start); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

// SetPosition moves the read position to off. Inside the current window only
// the cursor moves; otherwise the window is reloaded at off.
func (r *Reader) SetPosition(off int64) error {
	if r.closed {
		return ErrClosed
	}
	if off < 0 || off > r.size {
		return fmt.Errorf("%w: %d (size %d)", ErrInvalidOffset, off, r.size)
	}
	// The window end is a valid cursor position: channelPos always equals
	// bufferOffset+n, so the next read refills from exactly off. A Mapped
	// window is the whole file and cannot be refilled.
	if off >= r.bufferOffset && off <= r.bufferOffset+int64(r.n) {
		r.cursor = int(off - r.bufferOffset)
		return nil
	}

	r.channelPos = off
	r.bufferOffset = off
	r.n = 0
	r.cursor = 0
	if err := r.refill(); err != nil && !errors.Is(err, ErrEndOfFile) {
		return err
	}
	return nil
}

// SetByteOrder changes the order used by subsequent multi-byte reads.
func (r *Reader) SetByteOrder(order ByteOrder) {
	r.order = order
}

// ByteOrder returns the current byte order.
func (r *Reader) ByteOrder() ByteOrder {
	return r.order
}

// Position returns the absolute offset of the next byte to be read.
func (r *Reader) Position() int64 {
	return r.bufferOffset + int64(r.cursor)
}

// BufferOffset returns the file offset of the first byte of the window.
func (r *Reader) BufferOffset() int64 {
	return r.bufferOffset
}

// Size returns the file size.
func (r *Reader) Size() int64 {
	return r.size
}

// Kind returns the window strategy in effect after any fallback.
func (r *Reader) Kind() BufferKind {
	return r.kind
}

// Path returns the path the reader was opened on.
func (r *Reader) Path() string {
	return r.path
}

// Close releases the window and closes the file. It is safe to call twice.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.data = nil

	var errs []error
	if r.buf != nil {
		errs = append(errs, r.buf.Release())
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
	}
	return errors.Join(errs...)
}
