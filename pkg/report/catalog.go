package report

import (
	"fmt"
	"strings"

	"github.com/ssargent/characterize/pkg/dispatch"
	"github.com/ssargent/characterize/pkg/gzip"
	"github.com/ssargent/characterize/pkg/source"
)

// DefaultLocale is used when no locale is requested or the requested one has
// no table.
const DefaultLocale = "en"

// Formatter renders a message code and its arguments as text.
type Formatter interface {
	Format(code string, args []any, locale string) string
}

// entry is a format string and the number of arguments it consumes.
type entry struct {
	format string
	arity  int
}

// Catalog is a Formatter backed by per-locale tables of format strings.
type Catalog struct {
	tables map[string]map[string]entry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{tables: make(map[string]map[string]entry)}
}

// Add registers the format for code in locale. arity is the number of args
// the format consumes; messages with a different count fall back to the
// plain rendering.
func (c *Catalog) Add(locale, code, format string, arity int) {
	t, ok := c.tables[locale]
	if !ok {
		t = make(map[string]entry)
		c.tables[locale] = t
	}
	t[code] = entry{format: format, arity: arity}
}

// Format implements Formatter.
func (c *Catalog) Format(code string, args []any, locale string) string {
	e, ok := c.lookup(code, locale)
	if !ok || e.arity != len(args) {
		return plain(code, args)
	}
	return fmt.Sprintf(e.format, args...)
}

func (c *Catalog) lookup(code, locale string) (entry, bool) {
	if locale == "" {
		locale = DefaultLocale
	}
	if t, ok := c.tables[locale]; ok {
		if e, ok := t[code]; ok {
			return e, true
		}
	}
	// "en-GB" falls back to "en" before the default.
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		if t, ok := c.tables[locale[:i]]; ok {
			if e, ok := t[code]; ok {
				return e, true
			}
		}
	}
	e, ok := c.tables[DefaultLocale][code]
	return e, ok
}

func plain(code string, args []any) string {
	if len(args) == 0 {
		return code
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return code + ": " + strings.Join(parts, ", ")
}

// English is the default catalog.
var English = func() *Catalog {
	c := NewCatalog()
	add := func(code, format string, arity int) { c.Add(DefaultLocale, code, format, arity) }

	add(source.FailFastExceeded, "error limit of %d reached, further messages suppressed", 1)

	add(dispatch.CodeModuleNotFound, "no module registered for format %q (identified as %q)", 2)
	add(dispatch.CodeNotFormatModule, "format %q resolves to %s, which is not a format module", 2)
	add(dispatch.CodeParseFailed, "%s at offset %d while parsing with %s: %s", 4)
	add(dispatch.CodeValidateFailed, "%s while validating with %s: %s", 3)
	add(dispatch.CodeOpenFailed, "cannot open %s: %s", 2)
	add(dispatch.CodeIdentifyFailed, "identification failed: %s", 1)

	add(gzip.CodeReservedFlags, "member %d: reserved flag bits set at offset %d (flags 0x%02X)", 3)
	add(gzip.CodeUnknownExtraFlags, "member %d: unknown extra flags at offset %d (xfl %d)", 3)
	add(gzip.CodeUnknownOS, "member %d: unknown operating system at offset %d (os %d)", 3)
	add(gzip.CodeBadExtraField, "member %d: malformed extra field at offset %d (xlen %d)", 3)
	add(gzip.CodeHeaderCRCMismatch, "member %d: header CRC at offset %d is 0x%04X, computed 0x%04X", 4)
	add(gzip.CodeCRC32Mismatch, "member %d: CRC32 at offset %d is 0x%08X, computed 0x%08X", 4)
	add(gzip.CodeISizeMismatch, "member %d: ISIZE at offset %d is %d, computed %d", 4)
	add(gzip.CodeTruncated, "member %d starting at offset %d is truncated at offset %d", 3)
	add(gzip.CodeInvalidMember, "member %d at offset %d is invalid: %s", 3)
	add(gzip.CodeReadFailed, "member %d starting at offset %d could not be read: %s", 3)
	add(gzip.CodeNestingLimit, "nested stream depth %d reached limit %d, members not characterized", 2)

	return c
}()
