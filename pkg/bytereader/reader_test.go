package bytereader

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.bin")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func sequence(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestOpen_NotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), Heap, BigEndian)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReader_StraddlingRead(t *testing.T) {
	data := sequence(300)
	path := writeFixture(t, data)

	for _, kind := range []BufferKind{Heap, Native} {
		t.Run(kind.String(), func(t *testing.T) {
			r, err := Open(path, kind, BigEndian, WithBufferSize(100))
			require.NoError(t, err)
			defer r.Close()

			require.NoError(t, r.SetPosition(98))
			v, err := r.ReadU32()
			require.NoError(t, err)

			assert.Equal(t, binary.BigEndian.Uint32(data[98:102]), v)
			assert.Equal(t, int64(102), r.Position())
			assert.Equal(t, int64(100), r.BufferOffset())
		})
	}
}

func TestReader_StraddlingMatchesContiguous(t *testing.T) {
	data := sequence(64)
	path := writeFixture(t, data)

	for _, order := range []ByteOrder{BigEndian, LittleEndian} {
		t.Run(order.String(), func(t *testing.T) {
			small, err := Open(path, Heap, order, WithBufferSize(7))
			require.NoError(t, err)
			defer small.Close()

			large, err := Open(path, Heap, order, WithBufferSize(1024))
			require.NoError(t, err)
			defer large.Close()

			for off := int64(0); off+8 <= int64(len(data)); off++ {
				require.NoError(t, small.SetPosition(off))
				require.NoError(t, large.SetPosition(off))

				a, err := small.ReadU64()
				require.NoError(t, err)
				b, err := large.ReadU64()
				require.NoError(t, err)
				assert.Equal(t, b, a, "offset %d", off)
			}
		})
	}
}

func TestReader_TypedReads(t *testing.T) {
	data := make([]byte, 0, 64)
	data = binary.LittleEndian.AppendUint16(data, 0x8B1F)
	data = binary.LittleEndian.AppendUint32(data, 0xDEADBEEF)
	data = binary.LittleEndian.AppendUint64(data, 0x0102030405060708)
	data = binary.LittleEndian.AppendUint32(data, math.Float32bits(1.5))
	data = binary.LittleEndian.AppendUint64(data, math.Float64bits(-2.25))
	data = append(data, 0xFF)
	data = binary.LittleEndian.AppendUint16(data, 'Z')
	path := writeFixture(t, data)

	r, err := Open(path, Heap, LittleEndian, WithBufferSize(5))
	require.NoError(t, err)
	defer r.Close()

	u16, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8B1F), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.ReadU64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	f32, err := r.ReadF32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	f64, err := r.ReadF64()
	require.NoError(t, err)
	assert.Equal(t, -2.25, f64)

	i8, err := r.ReadI8()
	require.NoError(t, err)
	assert.Equal(t, int8(-1), i8)

	c, err := r.ReadChar16()
	require.NoError(t, err)
	assert.Equal(t, 'Z', c)

	_, err = r.ReadU8()
	assert.ErrorIs(t, err, ErrEndOfFile)
}

func TestReader_SetByteOrder(t *testing.T) {
	path := writeFixture(t, []byte{0x12, 0x34, 0x12, 0x34})

	r, err := Open(path, Heap, BigEndian)
	require.NoError(t, err)
	defer r.Close()

	be, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), be)

	r.SetByteOrder(LittleEndian)
	le, err := r.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3412), le)
}

func TestReader_SetPositionWindow(t *testing.T) {
	path := writeFixture(t, sequence(500))

	r, err := Open(path, Heap, BigEndian, WithBufferSize(100))
	require.NoError(t, err)
	defer r.Close()

	t.Run("in window", func(t *testing.T) {
		require.NoError(t, r.SetPosition(42))
		assert.Equal(t, int64(0), r.BufferOffset())
		assert.Equal(t, int64(42), r.Position())

		b, err := r.ReadU8()
		require.NoError(t, err)
		assert.Equal(t, uint8(42), b)
	})

	t.Run("out of window", func(t *testing.T) {
		require.NoError(t, r.SetPosition(250))
		assert.Equal(t, int64(250), r.BufferOffset())

		b, err := r.ReadU8()
		require.NoError(t, err)
		assert.Equal(t, uint8(250), b)
	})

	t.Run("invalid", func(t *testing.T) {
		assert.ErrorIs(t, r.SetPosition(501), ErrInvalidOffset)
		assert.ErrorIs(t, r.SetPosition(-1), ErrInvalidOffset)
	})

	t.Run("end of file", func(t *testing.T) {
		require.NoError(t, r.SetPosition(500))
		_, err := r.ReadU8()
		assert.ErrorIs(t, err, ErrEndOfFile)
	})
}

func TestWithMaxMappedSize(t *testing.T) {
	var o options
	WithMaxMappedSize(math.MaxInt64)(&o)
	assert.Equal(t, int64(math.MaxInt), o.maxMappedSize)

	WithMaxMappedSize(4096)(&o)
	assert.Equal(t, int64(4096), o.maxMappedSize)

	WithMaxMappedSize(0)(&o)
	assert.Equal(t, int64(4096), o.maxMappedSize)
}

func TestReader_SetPositionAtWindowEnd(t *testing.T) {
	path := writeFixture(t, sequence(500))

	r, err := Open(path, Heap, BigEndian, WithBufferSize(100))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadBytes(100)
	require.NoError(t, err)
	require.Equal(t, int64(0), r.BufferOffset())

	require.NoError(t, r.SetPosition(100))
	assert.Equal(t, int64(0), r.BufferOffset())
	assert.Equal(t, int64(100), r.Position())

	b, err := r.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(100), b)
	assert.Equal(t, int64(100), r.BufferOffset())
	assert.Equal(t, int64(101), r.Position())
}

func TestReader_EndOfFileLeavesPosition(t *testing.T) {
	path := writeFixture(t, sequence(10))

	r, err := Open(path, Heap, BigEndian, WithBufferSize(4))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SetPosition(7))
	_, err = r.ReadU32()
	require.ErrorIs(t, err, ErrEndOfFile)
	assert.Equal(t, int64(7), r.Position())

	_, err = r.ReadBytes(4)
	require.ErrorIs(t, err, ErrEndOfFile)
	assert.Equal(t, int64(7), r.Position())

	b, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 8, 9}, b)
}

func TestReader_Mapped(t *testing.T) {
	data := sequence(256)
	path := writeFixture(t, data)

	t.Run("maps small files", func(t *testing.T) {
		r, err := Open(path, Mapped, BigEndian)
		require.NoError(t, err)
		defer r.Close()

		require.NoError(t, r.SetPosition(200))
		v, err := r.ReadU16()
		require.NoError(t, err)
		assert.Equal(t, binary.BigEndian.Uint16(data[200:]), v)
		assert.Equal(t, int64(0), r.BufferOffset())
	})

	t.Run("falls back above threshold", func(t *testing.T) {
		r, err := Open(path, Mapped, BigEndian, WithMaxMappedSize(16), WithBufferSize(32))
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, Native, r.Kind())
		require.NoError(t, r.SetPosition(100))
		v, err := r.ReadU8()
		require.NoError(t, err)
		assert.Equal(t, uint8(100), v)
	})

	t.Run("empty file", func(t *testing.T) {
		empty := writeFixture(t, nil)
		r, err := Open(empty, Mapped, BigEndian)
		require.NoError(t, err)
		defer r.Close()

		assert.Equal(t, int64(0), r.Size())
		_, err = r.ReadU8()
		assert.ErrorIs(t, err, ErrEndOfFile)
	})
}

func TestReader_IOReader(t *testing.T) {
	data := sequence(300)
	path := writeFixture(t, data)

	r, err := Open(path, Heap, BigEndian, WithBufferSize(64))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SetPosition(10))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data[10:], got)

	_, err = r.ReadByte()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReader_Close(t *testing.T) {
	path := writeFixture(t, sequence(8))

	r, err := Open(path, Native, BigEndian)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.ReadU8()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestParseBufferKind(t *testing.T) {
	tests := []struct {
		in   string
		want BufferKind
		err  bool
	}{
		{"heap", Heap, false},
		{"Native", Native, false},
		{"", Native, false},
		{"mmap", Mapped, false},
		{"tape", Heap, true},
	}
	for _, tt := range tests {
		got, err := ParseBufferKind(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
