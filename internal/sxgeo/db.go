package sxgeo

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Record kinds, in pack schema order.
const (
	kindCountry = iota
	kindRegion
	kindCity
	numKinds
)

// DB is a loaded SxGeo database. After Open returns it is read-only and safe
// for concurrent lookups.
type DB struct {
	header  Header
	schemas [numKinds]*Schema
	index   *index
	blocks  blockTable
	regions section
	cities  section
	closer  io.Closer
}

type options struct {
	mode Mode
}

// Option configures Open.
type Option func(*options)

// WithMode selects how the file is held open. The default is ModeMemory.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// Open loads the database at path.
func Open(path string, opts ...Option) (*DB, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	st, closer, err := openStorage(path, o.mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db, err := New(st)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	db.closer = closer
	return db, nil
}

// New loads a database from an arbitrary storage. The header, pack schemas
// and both indices are read eagerly; blocks and blobs are read per lookup.
func New(st Storage) (*DB, error) {
	raw, err := st.ReadRange(0, headerLen)
	if err != nil {
		if errors.Is(err, ErrOutOfRange) {
			return nil, ErrBadMagic
		}
		return nil, err
	}
	h, err := parseHeader(raw)
	if err != nil {
		return nil, err
	}

	l := h.layout()
	if s, ok := st.(sizer); ok && s.Size() < l.end {
		return nil, fmt.Errorf("%w: file is %d bytes, sections need %d", ErrCorruptHeader, s.Size(), l.end)
	}

	db := &DB{header: h}
	if err := db.loadSchemas(st, l); err != nil {
		return nil, err
	}

	coarse, err := st.ReadRange(l.coarse, l.fine-l.coarse)
	if err != nil {
		return nil, fmt.Errorf("read byte index: %w", err)
	}
	fine, err := st.ReadRange(l.fine, l.blocks-l.fine)
	if err != nil {
		return nil, fmt.Errorf("read main index: %w", err)
	}
	db.index = newIndex(h, coarse, fine)

	db.blocks = blockTable{
		sec:   section{st: st, off: l.blocks, size: l.regions - l.blocks},
		count: h.ItemCount,
		idLen: int64(h.IDLen),
		size:  h.blockLen(),
	}
	db.regions = section{st: st, off: l.regions, size: int64(h.RegionBlobSize)}
	db.cities = section{st: st, off: l.cities, size: int64(h.CityBlobSize)}
	return db, nil
}

func (db *DB) loadSchemas(st Storage, l layout) error {
	var packs []string
	if n := int64(db.header.PackSchemaLen); n > 0 {
		raw, err := st.ReadRange(l.schemas, n)
		if err != nil {
			return fmt.Errorf("read pack schemas: %w", err)
		}
		packs = strings.Split(string(raw), "\x00")
	}

	for kind := range db.schemas {
		var src string
		if kind < len(packs) {
			src = packs[kind]
		}
		s, err := ParseSchema(src)
		if err != nil {
			return fmt.Errorf("pack schema %d: %w", kind, err)
		}
		db.schemas[kind] = s
	}
	return nil
}

// Close releases the file or mapping behind the database. Lookups must not
// be issued after Close.
func (db *DB) Close() error {
	if db.closer == nil {
		return nil
	}
	return db.closer.Close()
}

// Header returns the parsed file header.
func (db *DB) Header() Header {
	return db.header
}

// Schema returns the pack schema for country (0), region (1) or city (2)
// records.
func (db *DB) Schema(kind int) *Schema {
	if kind < 0 || kind >= numKinds {
		return nil
	}
	return db.schemas[kind]
}

// HasCities reports whether the database has a city pack schema. Databases
// without one store country ids directly in the block payload.
func (db *DB) HasCities() bool {
	return len(db.schemas[kindCity].fields) > 0
}
