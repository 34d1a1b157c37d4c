package gzip

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"strings"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/module"
	"github.com/ssargent/characterize/pkg/source"
)

const (
	magic         uint16 = 0x8B1F
	methodDeflate uint8  = 8
)

// headerReader reads header fields and feeds every byte read into the
// running header CRC.
type headerReader struct {
	r   *bytereader.Reader
	crc hash.Hash32
}

func newHeaderReader(r *bytereader.Reader) *headerReader {
	return &headerReader{r: r, crc: crc32.NewIEEE()}
}

func (h *headerReader) u8() (uint8, error) {
	v, err := h.r.ReadU8()
	if err != nil {
		return 0, err
	}
	h.crc.Write([]byte{v})
	return v, nil
}

func (h *headerReader) u16() (uint16, error) {
	v, err := h.r.ReadU16()
	if err != nil {
		return 0, err
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	h.crc.Write(b[:])
	return v, nil
}

func (h *headerReader) u32() (uint32, error) {
	v, err := h.r.ReadU32()
	if err != nil {
		return 0, err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	h.crc.Write(b[:])
	return v, nil
}

func (h *headerReader) bytes(n int) ([]byte, error) {
	b, err := h.r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	h.crc.Write(b)
	return b, nil
}

// latin1 reads a zero-terminated ISO-8859-1 string.
func (h *headerReader) latin1() (string, error) {
	var sb strings.Builder
	for {
		c, err := h.u8()
		if err != nil {
			return "", err
		}
		if c == 0 {
			return sb.String(), nil
		}
		sb.WriteRune(rune(c))
	}
}

// readHeader parses the member header at the reader's position into mem.
// Field problems are recorded on n; only structural failures are returned.
func (m *Module) readHeader(r *bytereader.Reader, n *source.Node, mem *Member) error {
	h := newHeaderReader(r)

	id, err := h.u16()
	if err != nil {
		return err
	}
	if id != magic {
		return &module.FormatError{
			Format: FormatID,
			Offset: mem.Offset,
			Reason: fmt.Sprintf("member %d: invalid magic number 0x%04X", mem.Index, id),
		}
	}

	if mem.Method, err = h.u8(); err != nil {
		return err
	}
	if mem.Method != methodDeflate {
		return &module.FormatError{
			Format: FormatID,
			Offset: mem.Offset + 2,
			Reason: fmt.Sprintf("member %d: unsupported compression method %d", mem.Index, mem.Method),
		}
	}

	flags, err := h.u8()
	if err != nil {
		return err
	}
	mem.Flags = Flag(flags)
	if mem.Flags&flagReserved != 0 {
		m.fail(n, mem, CheckReservedFlags, CodeReservedFlags, "flags", mem.Offset+3, flags)
	}

	if mem.ModTime, err = h.u32(); err != nil {
		return err
	}

	if mem.ExtraFlags, err = h.u8(); err != nil {
		return err
	}
	if _, ok := ExtraFlagsName(mem.ExtraFlags); !ok {
		m.fail(n, mem, CheckExtraFlags, CodeUnknownExtraFlags, "xfl", mem.Offset+8, mem.ExtraFlags)
	}

	if mem.OS, err = h.u8(); err != nil {
		return err
	}
	if _, ok := OSName(mem.OS); !ok {
		m.fail(n, mem, CheckOS, CodeUnknownOS, "os", mem.Offset+9, mem.OS)
	}

	if mem.Flags.Has(FlagExtra) {
		xlen, err := h.u16()
		if err != nil {
			return err
		}
		extraOffset := r.Position()
		data, err := h.bytes(int(xlen))
		if err != nil {
			return err
		}
		sub, ok := parseSubfields(data)
		mem.Extra = sub
		if !ok {
			m.fail(n, mem, CheckExtraField, CodeBadExtraField, "extra", extraOffset, xlen)
		}
	}

	if mem.Flags.Has(FlagName) {
		if mem.Name, err = h.latin1(); err != nil {
			return err
		}
	}

	if mem.Flags.Has(FlagComment) {
		if mem.Comment, err = h.latin1(); err != nil {
			return err
		}
	}

	if mem.Flags.Has(FlagHeaderCRC) {
		computed := uint16(h.crc.Sum32())
		crcOffset := r.Position()
		read, err := r.ReadU16()
		if err != nil {
			return err
		}
		mem.HeaderCRC = Pair16{Present: true, Read: read, Computed: computed}
		if read != computed {
			m.fail(n, mem, CheckHeaderCRC, CodeHeaderCRCMismatch, "crc16", crcOffset, read, computed)
		}
	}

	return nil
}

// parseSubfields splits FEXTRA data into SI1 SI2 LEN(2) DATA entries. It
// reports false if the entries do not exactly fill the field.
func parseSubfields(data []byte) ([]Subfield, bool) {
	var out []Subfield
	for len(data) > 0 {
		if len(data) < 4 {
			return out, false
		}
		size := int(binary.LittleEndian.Uint16(data[2:4]))
		if len(data) < 4+size {
			return out, false
		}
		out = append(out, Subfield{
			ID:   string(data[0:2]),
			Data: append([]byte(nil), data[4:4+size]...),
		})
		data = data[4+size:]
	}
	return out, true
}
