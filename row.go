package sheetdb

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row maps column names to cell values. Columns keep the order in which they
// were first set; matching ignores that order, header derivation uses it.
//
// A nil *Row reads as an empty row.
type Row struct {
	values *orderedmap.OrderedMap[string, Value]
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{values: orderedmap.New[string, Value]()}
}

// TextRow builds a row from alternating column/value pairs. A trailing column
// without a value is set to empty text.
func TextRow(pairs ...string) *Row {
	r := NewRow()
	for i := 0; i < len(pairs); i += 2 {
		value := ""
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}
		r.Set(pairs[i], Text(value))
	}
	return r
}

func (r *Row) init() {
	if r.values == nil {
		r.values = orderedmap.New[string, Value]()
	}
}

// Get returns the value stored in col.
func (r *Row) Get(col string) (Value, bool) {
	if r == nil || r.values == nil {
		return Value{}, false
	}
	return r.values.Get(col)
}

// Has reports whether the row carries col.
func (r *Row) Has(col string) bool {
	_, ok := r.Get(col)
	return ok
}

// Set stores value in col, keeping the column's position if it already exists.
func (r *Row) Set(col string, value Value) {
	r.init()
	r.values.Set(col, value)
}

// Delete removes col and reports whether it was present.
func (r *Row) Delete(col string) bool {
	if r == nil || r.values == nil {
		return false
	}
	_, ok := r.values.Delete(col)
	return ok
}

// Len returns the number of columns carried by the row.
func (r *Row) Len() int {
	if r == nil || r.values == nil {
		return 0
	}
	return r.values.Len()
}

// Columns returns the row's column names in insertion order.
func (r *Row) Columns() []string {
	cols := make([]string, 0, r.Len())
	for col := range r.All() {
		cols = append(cols, col)
	}
	return cols
}

// All iterates over the row's columns in insertion order.
func (r *Row) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if r == nil || r.values == nil {
			return
		}
		for pair := r.values.Oldest(); pair != nil; pair = pair.Next() {
			if !yield(pair.Key, pair.Value) {
				return
			}
		}
	}
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	c := NewRow()
	for col, v := range r.All() {
		c.values.Set(col, v)
	}
	return c
}

// Merge copies every column of patch into r, overwriting existing values.
func (r *Row) Merge(patch *Row) {
	for col, v := range patch.All() {
		r.Set(col, v)
	}
}

// Equal reports whether both rows carry the same columns with equal values.
// Column order is ignored.
func (r *Row) Equal(other *Row) bool {
	if r.Len() != other.Len() {
		return false
	}
	for col, v := range r.All() {
		ov, ok := other.Get(col)
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Matches reports whether every column of query is present in r with an
// equal value. An empty query matches every row.
func (r *Row) Matches(query *Row) bool {
	for col, want := range query.All() {
		got, ok := r.Get(col)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func (r *Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for col, v := range r.All() {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s: %q", col, v.Raw())
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the row as a JSON object with columns in order.
func (r *Row) MarshalJSON() ([]byte, error) {
	if r == nil || r.values == nil {
		return []byte("{}"), nil
	}
	return r.values.MarshalJSON()
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (r *Row) UnmarshalJSON(data []byte) error {
	r.values = orderedmap.New[string, Value]()
	if err := r.values.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("failed to decode row: %w", err)
	}
	return nil
}

// GetAsString returns the value as string or defaultValue if not found
func (r *Row) GetAsString(col string, defaultValue string) string {
	v, ok := r.Get(col)
	if !ok {
		return defaultValue
	}
	return v.Raw()
}

// GetAsInt64 returns the value as int64 or defaultValue if not found or not
// numeric. Fractional numbers are truncated.
func (r *Row) GetAsInt64(col string, defaultValue int64) int64 {
	v, ok := r.Get(col)
	if !ok {
		return defaultValue
	}
	s := strings.TrimSpace(v.Raw())
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return defaultValue
}

// GetAsFloat64 returns the value as float64 or defaultValue if not found
func (r *Row) GetAsFloat64(col string, defaultValue float64) float64 {
	v, ok := r.Get(col)
	if !ok {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v.Raw()), 64); err == nil {
		return f
	}
	return defaultValue
}

// GetAsStrings returns the comma separated value as []string or defaultValue
// if not found
func (r *Row) GetAsStrings(col string, defaultValue []string) []string {
	v, ok := r.Get(col)
	if !ok {
		return defaultValue
	}
	if v.Raw() == "" {
		return []string{}
	}
	return strings.Split(v.Raw(), ",")
}

// GetAsBool returns the value as bool or defaultValue if not found
func (r *Row) GetAsBool(col string, defaultValue bool) bool {
	v, ok := r.Get(col)
	if !ok {
		return defaultValue
	}
	switch strings.TrimSpace(v.Raw()) {
	case "true", "TRUE", "1":
		return true
	case "false", "FALSE", "0":
		return false
	}
	return defaultValue
}

// GetAsTime returns the value as time.Time or defaultValue if not found
func (r *Row) GetAsTime(col string, defaultValue time.Time) time.Time {
	v, ok := r.Get(col)
	if !ok {
		return defaultValue
	}
	// Try various formats
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, strings.TrimSpace(v.Raw())); err == nil {
			return t
		}
	}
	return defaultValue
}

// SetString sets a string value
func (r *Row) SetString(col string, value string) {
	r.Set(col, Text(value))
}

// SetInt64 sets an int64 value (stored as decimal text)
func (r *Row) SetInt64(col string, value int64) {
	r.Set(col, Text(strconv.FormatInt(value, 10)))
}

// SetFloat64 sets a float64 value (stored as shortest decimal text)
func (r *Row) SetFloat64(col string, value float64) {
	r.Set(col, Text(strconv.FormatFloat(value, 'f', -1, 64)))
}

// SetStrings sets a []string value (stored as comma-separated string)
func (r *Row) SetStrings(col string, value []string) {
	r.Set(col, Text(strings.Join(value, ",")))
}

// SetBool sets a bool value
func (r *Row) SetBool(col string, value bool) {
	r.Set(col, Text(strconv.FormatBool(value)))
}

// SetTime sets a time.Time value (stored as ISO 8601 string)
func (r *Row) SetTime(col string, value time.Time) {
	r.Set(col, Text(value.Format(time.RFC3339)))
}
