// Package gzip characterizes GZIP streams (RFC 1952).
//
// A GZIP stream is one or more members concatenated with no padding. Each
// member is laid out as:
//
//	[ID1 ID2][CM][FLG][MTIME(4)][XFL][OS]
//	[XLEN(2) extra...]      if FLG.FEXTRA
//	[name... 0]             if FLG.FNAME
//	[comment... 0]          if FLG.FCOMMENT
//	[CRC16(2)]              if FLG.FHCRC
//	[deflate data]
//	[CRC32(4)][ISIZE(4)]
//
// All multi-byte fields are little-endian. The magic (0x8B1F read as a
// little-endian u16) and the compression method (8, deflate) are mandatory;
// a mismatch in either is a *module.FormatError. Header CRC, reserved flag
// bits, unknown XFL or OS values, and trailer CRC32 or ISIZE mismatches are
// field validation errors: they are recorded on the stream's node, mark the
// member invalid, and parsing continues.
//
// # Members
//
// The body is inflated straight from the byte reader, so exactly the
// compressed bytes are consumed and the trailer is read from the right
// offset. The inflated bytes are spooled into a temporary source that becomes
// a child of the stream's node and is characterized in turn. The first member
// is characterized on the calling goroutine; later members may be handed to a
// bounded worker pool when the context allows more than one worker.
//
// # Failures
//
// A structural failure before the first member completes is returned from
// Parse. After at least one member has completed, a structural failure is
// recorded as a message, parsing stops, and the completed members are kept.
//
// # Nesting
//
// While parsing, a Module registers itself in the context's live table so
// that nested GZIP modules can count their enclosing instances. Members found
// deeper than MaxNesting are framed and checked but not characterized.
package gzip
