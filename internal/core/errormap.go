package core

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
)

// FieldErrors holds the messages recorded for one row, grouped by field.
// Fields and messages keep insertion order and messages are unique per
// field.
type FieldErrors struct {
	fields []string
	msgs   map[string][]string
}

func newFieldErrors() *FieldErrors {
	return &FieldErrors{msgs: make(map[string][]string)}
}

// add records msg under field and reports whether it was new.
func (fe *FieldErrors) add(field, msg string) bool {
	existing, ok := fe.msgs[field]
	if !ok {
		fe.fields = append(fe.fields, field)
	}
	if slices.Contains(existing, msg) {
		return false
	}
	fe.msgs[field] = append(existing, msg)
	return true
}

func (fe *FieldErrors) merge(other *FieldErrors) {
	for _, f := range other.fields {
		for _, m := range other.msgs[f] {
			fe.add(f, m)
		}
	}
}

// Fields returns the failed fields in the order they failed.
func (fe *FieldErrors) Fields() []string {
	return slices.Clone(fe.fields)
}

// Messages returns the messages recorded for field.
func (fe *FieldErrors) Messages(field string) []string {
	return slices.Clone(fe.msgs[field])
}

// Len returns the number of failed fields.
func (fe *FieldErrors) Len() int { return len(fe.fields) }

func (fe *FieldErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fe.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fe.msgs[f])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ErrorMap maps row numbers to the field errors recorded for them. A row
// is present iff at least one of its fields failed.
type ErrorMap struct {
	lines  []int
	byLine map[int]*FieldErrors
}

// NewErrorMap returns an empty map.
func NewErrorMap() *ErrorMap {
	return &ErrorMap{byLine: make(map[int]*FieldErrors)}
}

func (m *ErrorMap) reset() {
	m.lines = m.lines[:0]
	m.byLine = make(map[int]*FieldErrors)
}

func (m *ErrorMap) merge(line int, fe *FieldErrors) {
	if fe == nil || fe.Len() == 0 {
		return
	}
	existing, ok := m.byLine[line]
	if !ok {
		existing = newFieldErrors()
		m.byLine[line] = existing
		i, _ := slices.BinarySearch(m.lines, line)
		m.lines = slices.Insert(m.lines, i, line)
	}
	existing.merge(fe)
}

// Len returns the number of failed rows.
func (m *ErrorMap) Len() int { return len(m.lines) }

// Empty reports whether no row failed.
func (m *ErrorMap) Empty() bool { return len(m.lines) == 0 }

// Lines returns the failed row numbers in ascending order.
func (m *ErrorMap) Lines() []int { return slices.Clone(m.lines) }

// Line returns the errors recorded for a row, or nil.
func (m *ErrorMap) Line(line int) *FieldErrors { return m.byLine[line] }

// Messages returns the messages recorded for a row and field.
func (m *ErrorMap) Messages(line int, field string) []string {
	fe := m.byLine[line]
	if fe == nil {
		return nil
	}
	return fe.Messages(field)
}

// Count returns the total number of messages across all rows.
func (m *ErrorMap) Count() int {
	n := 0
	for _, fe := range m.byLine {
		for _, msgs := range fe.msgs {
			n += len(msgs)
		}
	}
	return n
}

// MarshalJSON encodes the map as {"<line>": {"<field>": ["msg", ...]}}
// with rows ascending and fields in failure order.
func (m *ErrorMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, line := range m.lines {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := m.byLine[line].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(line)))
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
