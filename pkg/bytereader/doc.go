// Package bytereader provides a positioned, byte-order-aware reader over a
// file, backed by a bounded buffer window.
//
// A Reader keeps one active window of the file in memory. Reads that fit in
// the window are served from it directly; a read that straddles the end of the
// window consumes the remaining bytes, refills the window from the file and
// continues, so a value split across two windows decodes exactly like one that
// is contiguous.
//
// Three window strategies are available:
//
//	Heap    a Go-allocated slice
//	Native  an off-heap anonymous mapping, released on Close
//	Mapped  a read-only mapping of the whole file
//
// Mapped is only used for files at or below the mapping threshold; larger or
// empty files fall back to Native. On platforms without mmap, Native falls back
// to Heap.
//
// Basic usage:
//
//	r, err := bytereader.Open(path, bytereader.Native, bytereader.LittleEndian)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	magic, err := r.ReadU16()
//
// A Reader is not safe for concurrent use.
package bytereader
