package source

import "fmt"

// Validity is a three-valued validation verdict.
type Validity int

const (
	Undetermined Validity = iota
	True
	False
)

func (v Validity) String() string {
	switch v {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "undetermined"
	}
}

// MarshalText renders the verdict as its name.
func (v Validity) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Coverage states whether a module inspects every byte of its source.
// Only Inclusive modules contribute to a node's aggregate validity.
type Coverage int

const (
	Inclusive Coverage = iota
	Selective
)

func (c Coverage) String() string {
	if c == Selective {
		return "selective"
	}
	return "inclusive"
}

// MarshalText renders the coverage as its name.
func (c Coverage) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Confidence ranks how strongly an identification is believed.
type Confidence int

const (
	Negative Confidence = iota
	Tentative
	Heuristic
	PositiveGeneric
	PositiveSpecific
)

func (c Confidence) String() string {
	switch c {
	case Negative:
		return "negative"
	case Tentative:
		return "tentative"
	case Heuristic:
		return "heuristic"
	case PositiveGeneric:
		return "positive-generic"
	case PositiveSpecific:
		return "positive-specific"
	default:
		return fmt.Sprintf("Confidence(%d)", int(c))
	}
}

// MarshalText renders the confidence as its name.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Format is a resolved internal format.
type Format struct {
	ID   string `json:"id" cbor:"id"`
	Name string `json:"name,omitempty" cbor:"name,omitempty"`
}

// FormatIdentification is a presumptive identification of a source. FormatID
// is empty when the external id does not resolve to a known format.
type FormatIdentification struct {
	ExternalID string     `json:"external_id" cbor:"external_id"`
	Namespace  string     `json:"namespace" cbor:"namespace"`
	FormatID   string     `json:"format_id,omitempty" cbor:"format_id,omitempty"`
	Confidence Confidence `json:"confidence" cbor:"confidence"`
}

// Resolved reports whether the identification maps to an internal format.
func (f FormatIdentification) Resolved() bool {
	return f.FormatID != ""
}

// Descriptor carries the identity and verdict of a module attached to a node.
type Descriptor struct {
	ID       string
	Name     string
	Version  string
	Format   Format
	Coverage Coverage
	Validity Validity
}

// Attached is anything that can be attached to a node as a module.
type Attached interface {
	Descriptor() *Descriptor
}

// Property is a reportable named value. Children form nested records.
type Property struct {
	Name      string     `json:"name" cbor:"name"`
	Namespace string     `json:"namespace,omitempty" cbor:"namespace,omitempty"`
	Value     any        `json:"value,omitempty" cbor:"value,omitempty"`
	Unit      string     `json:"unit,omitempty" cbor:"unit,omitempty"`
	Children  []Property `json:"children,omitempty" cbor:"children,omitempty"`
}
