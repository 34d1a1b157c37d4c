package gzip

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/module"
	"github.com/ssargent/characterize/pkg/source"
)

// readMember frames one member: header, inflated body and trailer. When
// spool is true the inflated bytes become a child of n, which is returned.
func (m *Module) readMember(ctx *module.Context, r *bytereader.Reader, n *source.Node, index int, spool bool) (Member, *source.Node, error) {
	mem := Member{Index: index, Offset: r.Position()}

	if err := m.readHeader(r, n, &mem); err != nil {
		return mem, nil, err
	}

	var sink source.Spool
	if spool {
		s, err := ctx.Sources.Materialize(n, memberName(n, &mem))
		if err != nil {
			return mem, nil, &bytereader.IOError{Op: "spool", Path: n.Path(), Offset: r.Position(), Err: err}
		}
		sink = s
	}

	if err := m.inflate(r, &mem, sink); err != nil {
		if sink != nil {
			_ = sink.Discard()
		}
		return mem, nil, err
	}

	if err := m.readTrailer(r, n, &mem); err != nil {
		if sink != nil {
			_ = sink.Discard()
		}
		return mem, nil, err
	}

	if sink == nil {
		return mem, nil, nil
	}
	child, err := sink.Commit()
	if err != nil {
		return mem, nil, &bytereader.IOError{Op: "spool", Path: n.Path(), Offset: mem.Offset, Err: err}
	}
	return mem, child, nil
}

// inflate decompresses the body from r, which must be positioned at the
// first deflate byte, into sink while computing the CRC32 and size.
func (m *Module) inflate(r *bytereader.Reader, mem *Member, sink io.Writer) error {
	bodyStart := r.Position()
	crc := crc32.NewIEEE()

	w := io.Writer(crc)
	if sink != nil {
		w = io.MultiWriter(crc, sink)
	}

	fr := flate.NewReader(r)
	defer fr.Close()

	var src io.Reader = fr
	if m.opts.MaxInflatedSize > 0 {
		src = io.LimitReader(fr, m.opts.MaxInflatedSize+1)
	}

	written, err := io.Copy(w, src)
	mem.CompressedSize = r.Position() - bodyStart
	mem.Size = written
	mem.CRC32.Computed = crc.Sum32()
	mem.ISize.Computed = uint32(written)

	if err != nil {
		return inflateError(mem, r.Position(), err)
	}
	if m.opts.MaxInflatedSize > 0 && written > m.opts.MaxInflatedSize {
		return &module.FormatError{
			Format: FormatID,
			Offset: bodyStart,
			Reason: fmt.Sprintf("member %d: inflated size exceeds limit of %d bytes", mem.Index, m.opts.MaxInflatedSize),
		}
	}
	return nil
}

// inflateError maps a decompressor failure onto the structural error kinds.
func inflateError(mem *Member, offset int64, err error) error {
	var ioErr *bytereader.IOError
	if errors.As(err, &ioErr) {
		return err
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("member %d body at offset %d: %w", mem.Index, offset, bytereader.ErrEndOfFile)
	}
	return &module.FormatError{
		Format: FormatID,
		Offset: offset,
		Reason: fmt.Sprintf("member %d: corrupt deflate data: %v", mem.Index, err),
		Err:    err,
	}
}

// readTrailer reads CRC32 and ISIZE and compares them to the computed values.
func (m *Module) readTrailer(r *bytereader.Reader, n *source.Node, mem *Member) error {
	crcOffset := r.Position()
	read, err := r.ReadU32()
	if err != nil {
		return err
	}
	mem.CRC32.Read = read

	sizeOffset := r.Position()
	isize, err := r.ReadU32()
	if err != nil {
		return err
	}
	mem.ISize.Read = isize

	if !mem.CRC32.Match() {
		m.fail(n, mem, CheckCRC32, CodeCRC32Mismatch, "crc32", crcOffset, mem.CRC32.Read, mem.CRC32.Computed)
	}
	if !mem.ISize.Match() {
		m.fail(n, mem, CheckISize, CodeISizeMismatch, "isize", sizeOffset, mem.ISize.Read, mem.ISize.Computed)
	}
	return nil
}

func memberName(n *source.Node, mem *Member) string {
	if mem.Name != "" {
		return mem.Name
	}
	return fmt.Sprintf("%s#%d", n.Name(), mem.Index)
}
