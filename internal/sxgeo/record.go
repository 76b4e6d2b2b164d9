package sxgeo

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Record is a decoded country, region or city record. Values are int64,
// float64 or string, in schema order. Records are immutable.
type Record struct {
	names  []string
	values []any
}

// NewRecord builds a record from parallel name and value slices.
func NewRecord(names []string, values []any) Record {
	if len(names) != len(values) {
		panic("sxgeo: NewRecord called with mismatched names and values")
	}
	return Record{names: slices.Clone(names), values: slices.Clone(values)}
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.names) }

// Names returns field names in order.
func (r Record) Names() []string { return slices.Clone(r.names) }

// Value returns the named value and whether the field exists.
func (r Record) Value(name string) (any, bool) {
	i := slices.Index(r.names, name)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Int returns the named value as an integer, truncating floats.
func (r Record) Int(name string) int64 {
	v, _ := r.Value(name)
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

// Float returns the named value as a float.
func (r Record) Float(name string) float64 {
	v, _ := r.Value(name)
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// String returns the named value if it is a string.
func (r Record) String(name string) string {
	v, _ := r.Value(name)
	s, _ := v.(string)
	return s
}

// Map returns the record as a map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.names))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

// with returns a copy with name set to v, appending the field if missing.
func (r Record) with(name string, v any) Record {
	out := Record{names: slices.Clone(r.names), values: slices.Clone(r.values)}
	if i := slices.Index(out.names, name); i >= 0 {
		out.values[i] = v
		return out
	}
	out.names = append(out.names, name)
	out.values = append(out.values, v)
	return out
}

// without returns a copy with the given fields removed.
func (r Record) without(names ...string) Record {
	out := Record{
		names:  make([]string, 0, len(r.names)),
		values: make([]any, 0, len(r.values)),
	}
	for i, n := range r.names {
		if slices.Contains(names, n) {
			continue
		}
		out.names = append(out.names, n)
		out.values = append(out.values, r.values[i])
	}
	return out
}

// MarshalJSON encodes the record as an object with keys in schema order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
