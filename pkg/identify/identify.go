// Package identify makes presumptive format identifications from magic
// byte signatures.
package identify

import (
	"bytes"

	"github.com/ssargent/characterize/pkg/bytereader"
	"github.com/ssargent/characterize/pkg/source"
)

// NamespacePUID is the namespace of PRONOM persistent unique identifiers.
const NamespacePUID = "PUID"

// Signature matches Magic at Offset bytes into a source.
type Signature struct {
	Name     string
	PUID     string
	MIME     string
	Offset   int
	Magic    []byte
	FormatID string // internal format, empty if no module handles it
}

// DefaultSignatures is ordered most specific first.
var DefaultSignatures = []Signature{
	{Name: "GZIP", PUID: "x-fmt/266", MIME: "application/gzip", Magic: []byte{0x1F, 0x8B}, FormatID: "gzip"},
	{Name: "ZIP", PUID: "x-fmt/263", MIME: "application/zip", Magic: []byte{0x50, 0x4B, 0x03, 0x04}},
	{Name: "ZIP", PUID: "x-fmt/263", MIME: "application/zip", Magic: []byte{0x50, 0x4B, 0x05, 0x06}},
	{Name: "TAR", PUID: "x-fmt/265", MIME: "application/x-tar", Offset: 257, Magic: []byte("ustar")},
	{Name: "BZIP2", PUID: "x-fmt/268", MIME: "application/x-bzip2", Magic: []byte("BZh")},
	{Name: "XZ", PUID: "fmt/1098", MIME: "application/x-xz", Magic: []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
	{Name: "Zstandard", PUID: "fmt/1561", MIME: "application/zstd", Magic: []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{Name: "7-Zip", PUID: "fmt/484", MIME: "application/x-7z-compressed", Magic: []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
	{Name: "PDF", PUID: "fmt/276", MIME: "application/pdf", Magic: []byte("%PDF-")},
	{Name: "PNG", PUID: "fmt/11", MIME: "image/png", Magic: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	{Name: "JPEG", PUID: "fmt/43", MIME: "image/jpeg", Magic: []byte{0xFF, 0xD8, 0xFF}},
	{Name: "GIF", PUID: "fmt/4", MIME: "image/gif", Magic: []byte("GIF89a")},
	{Name: "GIF", PUID: "fmt/3", MIME: "image/gif", Magic: []byte("GIF87a")},
	{Name: "TIFF", PUID: "fmt/353", MIME: "image/tiff", Magic: []byte{0x49, 0x49, 0x2A, 0x00}},
	{Name: "TIFF", PUID: "fmt/353", MIME: "image/tiff", Magic: []byte{0x4D, 0x4D, 0x00, 0x2A}},
	{Name: "WARC", PUID: "fmt/289", MIME: "application/warc", Magic: []byte("WARC/")},
	{Name: "XML", PUID: "fmt/101", MIME: "application/xml", Magic: []byte("<?xml")},
}

// Identifier matches a node's leading bytes against a signature table.
type Identifier struct {
	signatures []Signature
	window     int
}

// New creates an identifier over sigs; nil means DefaultSignatures.
func New(sigs []Signature) *Identifier {
	if sigs == nil {
		sigs = DefaultSignatures
	}
	window := 0
	for _, s := range sigs {
		if end := s.Offset + len(s.Magic); end > window {
			window = end
		}
	}
	return &Identifier{signatures: sigs, window: window}
}

// Identify reads the head of n from r, which must be positioned at the start
// of n, and returns one identification per matching PUID.
func (id *Identifier) Identify(r *bytereader.Reader, n *source.Node) ([]source.FormatIdentification, error) {
	want := int64(id.window)
	if n.Length() < want {
		want = n.Length()
	}
	head, err := r.ReadBytes(int(want))
	if err != nil {
		return nil, err
	}
	return id.Match(head), nil
}

// Match returns identifications for every signature matching head.
func (id *Identifier) Match(head []byte) []source.FormatIdentification {
	var out []source.FormatIdentification
	seen := make(map[string]bool)
	for _, s := range id.signatures {
		end := s.Offset + len(s.Magic)
		if end > len(head) || seen[s.PUID] {
			continue
		}
		if !bytes.Equal(head[s.Offset:end], s.Magic) {
			continue
		}
		seen[s.PUID] = true
		out = append(out, source.FormatIdentification{
			ExternalID: s.PUID,
			Namespace:  NamespacePUID,
			FormatID:   s.FormatID,
			Confidence: source.PositiveSpecific,
		})
	}
	return out
}
