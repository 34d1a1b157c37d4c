package report

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Encoding selects the serialized form of a report.
type Encoding int

const (
	JSON Encoding = iota
	CBOR
)

func (e Encoding) String() string {
	if e == CBOR {
		return "cbor"
	}
	return "json"
}

// ContentType is the media type of the encoding.
func (e Encoding) ContentType() string {
	if e == CBOR {
		return "application/cbor"
	}
	return "application/json"
}

// ParseEncoding converts a name into an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	default:
		return JSON, fmt.Errorf("unknown report encoding %q", s)
	}
}

// encMode uses Core Deterministic Encoding so a report always produces the
// same bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, err = opts.EncMode()
	if err != nil {
		panic("report: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("report: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal serializes r.
func Marshal(r *Report, enc Encoding) ([]byte, error) {
	if enc == CBOR {
		return encMode.Marshal(r)
	}
	return json.Marshal(r)
}

// Unmarshal decodes a report produced by Marshal.
func Unmarshal(data []byte, enc Encoding) (*Report, error) {
	var r Report
	var err error
	if enc == CBOR {
		err = decMode.Unmarshal(data, &r)
	} else {
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s report: %w", enc, err)
	}
	return &r, nil
}

// Write serializes r to w. JSON output is indented.
func Write(w io.Writer, r *Report, enc Encoding) error {
	if enc == CBOR {
		return encMode.NewEncoder(w).Encode(r)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(r)
}
