package reader

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// OrdinalKey is the key the validation engine attaches to every cleaned row.
// It holds the 1-based row number.
const OrdinalKey = "_i"

// Row maps normalized header names to cell values. Values are string,
// int64, float64, bool or time.Time depending on the reader.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Ordinal returns the row number attached by the engine, or 0.
func (r Row) Ordinal() int {
	if n, ok := r[OrdinalKey].(int); ok {
		return n
	}
	return 0
}

// Blank reports whether every value in the row is empty.
func (r Row) Blank() bool {
	for k, v := range r {
		if k == OrdinalKey {
			continue
		}
		if !IsEmpty(v) {
			return false
		}
	}
	return true
}

// String renders the row with sorted keys, for logs.
func (r Row) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, r[k])
	}
	b.WriteByte('}')
	return b.String()
}

// IsEmpty reports whether v counts as "no value": nil, a string that is
// empty after trimming whitespace, or an empty slice or map.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []byte:
		return len(x) == 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
