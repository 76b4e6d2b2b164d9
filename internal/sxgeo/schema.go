package sxgeo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrBadSchema is returned when a pack schema string cannot be parsed.
	ErrBadSchema = errors.New("sxgeo: bad pack schema")

	// ErrTruncated is returned when a record is shorter than its schema requires.
	ErrTruncated = errors.New("sxgeo: truncated record")
)

// FieldKind identifies how a schema field is laid out in a record.
type FieldKind uint8

const (
	Int8 FieldKind = iota
	UInt8
	Int16BE
	UInt16LE
	Int24BE
	UInt24LE
	Int32BE
	UInt32BE
	Float32BE
	Float64BE
	FixedDecimal16LE // unsigned, divided by 10^Scale
	FixedDecimal32LE // signed, divided by 10^Scale
	FixedString
	CString
)

var kindNames = [...]string{
	Int8:             "int8",
	UInt8:            "uint8",
	Int16BE:          "int16be",
	UInt16LE:         "uint16le",
	Int24BE:          "int24be",
	UInt24LE:         "uint24le",
	Int32BE:          "int32be",
	UInt32BE:         "uint32be",
	Float32BE:        "float32be",
	Float64BE:        "float64be",
	FixedDecimal16LE: "decimal16le",
	FixedDecimal32LE: "decimal32le",
	FixedString:      "string",
	CString:          "cstring",
}

func (k FieldKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Field describes one named value of a record.
type Field struct {
	Name  string
	Kind  FieldKind
	Size  int // bytes consumed; 0 for CString, which runs to its terminator
	Scale int // decimal digits for the fixed-point kinds
}

// Schema is a parsed pack schema: the ordered field layout of one record kind.
// It is immutable and safe for concurrent use.
type Schema struct {
	fields []Field
	names  []string
}

// ParseSchema parses a "/"-joined list of "type:name" descriptors.
// An empty string yields a schema with no fields.
func ParseSchema(s string) (*Schema, error) {
	sc := &Schema{}
	if s == "" {
		return sc, nil
	}
	for _, desc := range strings.Split(s, "/") {
		f, err := parseField(desc)
		if err != nil {
			return nil, err
		}
		sc.fields = append(sc.fields, f)
		sc.names = append(sc.names, f.Name)
	}
	return sc, nil
}

func parseField(desc string) (Field, error) {
	code, name, ok := strings.Cut(desc, ":")
	if !ok || code == "" || name == "" {
		return Field{}, fmt.Errorf("%w: descriptor %q", ErrBadSchema, desc)
	}

	f := Field{Name: name}
	switch code[0] {
	case 't':
		f.Kind, f.Size = Int8, 1
	case 'T':
		f.Kind, f.Size = UInt8, 1
	case 's':
		f.Kind, f.Size = Int16BE, 2
	case 'S':
		f.Kind, f.Size = UInt16LE, 2
	case 'm':
		f.Kind, f.Size = Int24BE, 3
	case 'M':
		f.Kind, f.Size = UInt24LE, 3
	case 'I':
		f.Kind, f.Size = UInt32BE, 4
	case 'f':
		f.Kind, f.Size = Float32BE, 4
	case 'd':
		f.Kind, f.Size = Float64BE, 8
	case 'n', 'N':
		scale, err := strconv.Atoi(code[1:])
		if err != nil || len(code) != 2 {
			return Field{}, fmt.Errorf("%w: bad scale in %q", ErrBadSchema, desc)
		}
		f.Scale = scale
		if code[0] == 'n' {
			f.Kind, f.Size = FixedDecimal16LE, 2
		} else {
			f.Kind, f.Size = FixedDecimal32LE, 4
		}
	case 'c':
		n, err := strconv.Atoi(code[1:])
		if err != nil || n < 0 {
			return Field{}, fmt.Errorf("%w: bad length in %q", ErrBadSchema, desc)
		}
		f.Kind, f.Size = FixedString, n
	case 'b':
		f.Kind = CString
	default:
		// 'i' and any unrecognised code.
		f.Kind, f.Size = Int32BE, 4
	}
	return f, nil
}

// Fields returns the schema's field descriptors in record order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Zero returns a record with every field set to its zero value: 0 for
// numbers and "" for strings.
func (s *Schema) Zero() Record {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		values[i] = f.zero()
	}
	return Record{names: s.names, values: values}
}

// Decode materialises a record from raw bytes. An empty slice means the
// record is absent and yields Zero().
func (s *Schema) Decode(b []byte) (Record, error) {
	if len(b) == 0 {
		return s.Zero(), nil
	}

	values := make([]any, len(s.fields))
	pos := 0
	for i, f := range s.fields {
		if f.Kind == CString {
			end := bytes.IndexByte(b[pos:], 0)
			if end < 0 {
				values[i] = string(b[pos:])
				pos = len(b)
				continue
			}
			values[i] = string(b[pos : pos+end])
			pos += end + 1
			continue
		}

		if pos+f.Size > len(b) {
			return Record{}, fmt.Errorf("%w: field %q needs %d bytes at offset %d, have %d",
				ErrTruncated, f.Name, f.Size, pos, len(b)-pos)
		}
		values[i] = f.decode(b[pos : pos+f.Size])
		pos += f.Size
	}
	return Record{names: s.names, values: values}, nil
}

func (f Field) zero() any {
	switch f.Kind {
	case FixedString, CString:
		return ""
	case Float32BE, Float64BE, FixedDecimal16LE, FixedDecimal32LE:
		return float64(0)
	default:
		return int64(0)
	}
}

// decode converts exactly f.Size bytes.
func (f Field) decode(v []byte) any {
	switch f.Kind {
	case Int8:
		return int64(int8(v[0]))
	case UInt8:
		return int64(v[0])
	case Int16BE:
		return int64(int16(binary.BigEndian.Uint16(v)))
	case UInt16LE:
		return int64(binary.LittleEndian.Uint16(v))
	case Int24BE:
		u := uint32(v[0])<<16 | uint32(v[1])<<8 | uint32(v[2])
		return int64(int32(u<<8) >> 8)
	case UInt24LE:
		return int64(uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16)
	case Int32BE:
		return int64(int32(binary.BigEndian.Uint32(v)))
	case UInt32BE:
		return int64(binary.BigEndian.Uint32(v))
	case Float32BE:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(v)))
	case Float64BE:
		return math.Float64frombits(binary.BigEndian.Uint64(v))
	case FixedDecimal16LE:
		return float64(binary.LittleEndian.Uint16(v)) / math.Pow10(f.Scale)
	case FixedDecimal32LE:
		// Coordinates are little-endian even though most fields are big-endian.
		return float64(int32(binary.LittleEndian.Uint32(v))) / math.Pow10(f.Scale)
	case FixedString:
		return strings.TrimRight(string(v), " ")
	}
	return nil
}
