package gzip

import (
	"fmt"
	"strings"
	"time"

	"github.com/ssargent/characterize/pkg/source"
)

// Flag is the FLG header byte.
type Flag uint8

const (
	FlagText Flag = 1 << iota
	FlagHeaderCRC
	FlagExtra
	FlagName
	FlagComment

	flagReserved Flag = 0xE0
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{FlagText, "FTEXT"},
	{FlagHeaderCRC, "FHCRC"},
	{FlagExtra, "FEXTRA"},
	{FlagName, "FNAME"},
	{FlagComment, "FCOMMENT"},
}

// Has reports whether all bits of f2 are set.
func (f Flag) Has(f2 Flag) bool { return f&f2 == f2 }

// Names returns the names of the defined flags that are set.
func (f Flag) Names() []string {
	var out []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			out = append(out, fn.name)
		}
	}
	return out
}

func (f Flag) String() string {
	names := f.Names()
	if f&flagReserved != 0 {
		names = append(names, fmt.Sprintf("reserved(0x%02X)", uint8(f&flagReserved)))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Check is a bitmask of the checks a member failed.
type Check uint16

const (
	CheckHeaderCRC Check = 1 << iota
	CheckReservedFlags
	CheckExtraFlags
	CheckOS
	CheckExtraField
	CheckCRC32
	CheckISize
)

var checkNames = []struct {
	check Check
	name  string
}{
	{CheckHeaderCRC, "header-crc16"},
	{CheckReservedFlags, "reserved-flags"},
	{CheckExtraFlags, "extra-flags"},
	{CheckOS, "operating-system"},
	{CheckExtraField, "extra-field"},
	{CheckCRC32, "crc32"},
	{CheckISize, "isize"},
}

// Names returns the names of the failed checks.
func (c Check) Names() []string {
	var out []string
	for _, cn := range checkNames {
		if c&cn.check != 0 {
			out = append(out, cn.name)
		}
	}
	return out
}

var operatingSystems = map[uint8]string{
	0:   "FAT filesystem (MS-DOS, OS/2, NT/Win32)",
	1:   "Amiga",
	2:   "VMS (or OpenVMS)",
	3:   "Unix",
	4:   "VM/CMS",
	5:   "Atari TOS",
	6:   "HPFS filesystem (OS/2, NT)",
	7:   "Macintosh",
	8:   "Z-System",
	9:   "CP/M",
	10:  "TOPS-20",
	11:  "NTFS filesystem (NT)",
	12:  "QDOS",
	13:  "Acorn RISCOS",
	255: "unknown",
}

var extraFlags = map[uint8]string{
	0: "none",
	2: "maximum compression",
	4: "fastest compression",
}

// OSName returns the RFC 1952 name for an OS byte.
func OSName(os uint8) (string, bool) {
	name, ok := operatingSystems[os]
	return name, ok
}

// ExtraFlagsName returns the RFC 1952 name for an XFL byte.
func ExtraFlagsName(xfl uint8) (string, bool) {
	name, ok := extraFlags[xfl]
	return name, ok
}

// Subfield is one entry of the FEXTRA field.
type Subfield struct {
	ID   string
	Data []byte
}

// Pair16 holds a stored 16-bit check value and the value computed for it.
type Pair16 struct {
	Present  bool
	Read     uint16
	Computed uint16
}

// Pair32 holds a stored 32-bit check value and the value computed for it.
type Pair32 struct {
	Read     uint32
	Computed uint32
}

// Match reports whether the stored and computed values agree.
func (p Pair32) Match() bool { return p.Read == p.Computed }

// Member is one parsed GZIP member. It is complete once its trailer has
// been read and is not modified afterwards.
type Member struct {
	Index          int
	Offset         int64
	Method         uint8
	Flags          Flag
	ModTime        uint32
	ExtraFlags     uint8
	OS             uint8
	Extra          []Subfield
	Name           string
	Comment        string
	HeaderCRC      Pair16
	CRC32          Pair32
	ISize          Pair32
	CompressedSize int64
	Size           int64
	Errors         Check
}

// Valid reports whether every header and trailer check passed.
func (m Member) Valid() bool { return m.Errors == 0 }

// Properties renders the member as a property record.
func (m Member) Properties() source.Property {
	p := source.Property{Name: "Member", Namespace: Namespace}
	add := func(name string, value any, unit string) {
		p.Children = append(p.Children, source.Property{Name: name, Namespace: Namespace, Value: value, Unit: unit})
	}

	add("Index", m.Index, "")
	add("Offset", m.Offset, "bytes")
	add("CompressionMethod", "deflate", "")
	add("Flags", uint8(m.Flags), "")
	if names := m.Flags.Names(); len(names) > 0 {
		add("FlagNames", names, "")
	}
	if m.ModTime != 0 {
		add("ModificationTime", time.Unix(int64(m.ModTime), 0).UTC().Format(time.RFC3339), "")
	}
	xfl := fmt.Sprintf("%d", m.ExtraFlags)
	if name, ok := ExtraFlagsName(m.ExtraFlags); ok {
		xfl = name
	}
	add("ExtraFlags", xfl, "")
	osName := fmt.Sprintf("%d", m.OS)
	if name, ok := OSName(m.OS); ok {
		osName = name
	}
	add("OperatingSystem", osName, "")
	for _, sf := range m.Extra {
		add("ExtraSubfield", fmt.Sprintf("%s (%d bytes)", sf.ID, len(sf.Data)), "")
	}
	if m.Name != "" {
		add("FileName", m.Name, "")
	}
	if m.Comment != "" {
		add("Comment", m.Comment, "")
	}
	if m.HeaderCRC.Present {
		add("HeaderCRC16", fmt.Sprintf("0x%04X", m.HeaderCRC.Read), "")
		add("ComputedHeaderCRC16", fmt.Sprintf("0x%04X", m.HeaderCRC.Computed), "")
	}
	add("CRC32", fmt.Sprintf("0x%08X", m.CRC32.Read), "")
	add("ComputedCRC32", fmt.Sprintf("0x%08X", m.CRC32.Computed), "")
	add("ISize", m.ISize.Read, "bytes")
	add("ComputedISize", m.ISize.Computed, "bytes")
	add("CompressedSize", m.CompressedSize, "bytes")
	add("UncompressedSize", m.Size, "bytes")
	add("Valid", m.Valid(), "")
	if failed := m.Errors.Names(); len(failed) > 0 {
		add("FailedChecks", failed, "")
	}
	return p
}
