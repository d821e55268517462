package sheetdb

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindText is a plain text cell. It is the zero Kind, so the zero Value
	// is empty text.
	KindText Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single cell value. Only text cells exist today; the Kind tag
// leaves room for numeric, boolean or date cells without changing how
// existing values compare.
//
// Value is comparable: two values are equal when both kind and payload are
// equal, so == and Equal agree.
type Value struct {
	kind Kind
	text string
}

// Text returns a text Value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// FromRaw converts a codec's native cell content into a Value.
func FromRaw(raw string) Value {
	return Text(raw)
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Raw converts v into the codec's native cell content.
func (v Value) Raw() string {
	switch v.kind {
	case KindText:
		return v.text
	default:
		return v.text
	}
}

// String returns the text rendering of v.
func (v Value) String() string { return v.Raw() }

// Equal reports whether v and other hold the same kind and payload.
func (v Value) Equal(other Value) bool { return v == other }

// IsBlank reports whether v renders as whitespace only.
func (v Value) IsBlank() bool {
	return strings.TrimSpace(v.Raw()) == ""
}

// MarshalJSON encodes v as a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw())
}

// UnmarshalJSON accepts a JSON string, number or boolean and stores its text
// rendering.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Text(s)
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode cell value: %w", err)
	}
	switch val := raw.(type) {
	case nil:
		*v = Text("")
	case float64, bool:
		*v = Text(fmt.Sprintf("%v", val))
	default:
		return fmt.Errorf("unsupported cell value %s", string(data))
	}
	return nil
}
