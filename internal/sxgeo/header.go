package sxgeo

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	headerLen = 40
	magic     = "SxG"

	// keyLen is the width of the IP bound stored at the start of each block.
	keyLen = 3
)

var (
	// ErrBadMagic is returned when the file does not start with the SxGeo signature.
	ErrBadMagic = errors.New("sxgeo: bad magic")

	// ErrCorruptHeader is returned when a mandatory header field is zero or out of range.
	ErrCorruptHeader = errors.New("sxgeo: corrupt header")
)

// Header is the fixed 40-byte preamble of an SxGeo database.
type Header struct {
	Version          uint8
	Timestamp        uint32 // build time, seconds since epoch
	Type             uint8
	Charset          uint8
	ByteIndexLen     uint8  // entries in the coarse index
	MainIndexLen     uint16 // entries in the fine index
	Range            uint16 // blocks per fine-index bucket
	ItemCount        uint32 // block records
	IDLen            uint8  // payload bytes per block
	MaxRegionRecLen  uint16
	MaxCityRecLen    uint16
	RegionBlobSize   uint32
	CityBlobSize     uint32
	MaxCountryRecLen uint16
	CountryBlobSize  uint32
	PackSchemaLen    uint16
}

func parseHeader(b []byte) (Header, error) {
	if len(b) < headerLen || string(b[:3]) != magic {
		return Header{}, ErrBadMagic
	}

	h := Header{
		Version:          b[3],
		Timestamp:        binary.BigEndian.Uint32(b[4:8]),
		Type:             b[8],
		Charset:          b[9],
		ByteIndexLen:     b[10],
		MainIndexLen:     binary.BigEndian.Uint16(b[11:13]),
		Range:            binary.BigEndian.Uint16(b[13:15]),
		ItemCount:        binary.BigEndian.Uint32(b[15:19]),
		IDLen:            b[19],
		MaxRegionRecLen:  binary.BigEndian.Uint16(b[20:22]),
		MaxCityRecLen:    binary.BigEndian.Uint16(b[22:24]),
		RegionBlobSize:   binary.BigEndian.Uint32(b[24:28]),
		CityBlobSize:     binary.BigEndian.Uint32(b[28:32]),
		MaxCountryRecLen: binary.BigEndian.Uint16(b[32:34]),
		CountryBlobSize:  binary.BigEndian.Uint32(b[34:38]),
		PackSchemaLen:    binary.BigEndian.Uint16(b[38:40]),
	}

	return h, h.validate()
}

func (h Header) validate() error {
	mandatory := []struct {
		name string
		v    uint32
	}{
		{"byte index length", uint32(h.ByteIndexLen)},
		{"main index length", uint32(h.MainIndexLen)},
		{"range", uint32(h.Range)},
		{"item count", h.ItemCount},
		{"id length", uint32(h.IDLen)},
		{"timestamp", h.Timestamp},
	}
	for _, f := range mandatory {
		if f.v == 0 {
			return fmt.Errorf("%w: %s is zero", ErrCorruptHeader, f.name)
		}
	}
	if h.IDLen > 4 {
		return fmt.Errorf("%w: id length %d exceeds 4 bytes", ErrCorruptHeader, h.IDLen)
	}
	return nil
}

func (h Header) blockLen() int64 {
	return keyLen + int64(h.IDLen)
}

// layout holds absolute file offsets of every section following the header.
type layout struct {
	schemas int64
	coarse  int64
	fine    int64
	blocks  int64
	regions int64
	cities  int64
	end     int64
}

func (h Header) layout() layout {
	var l layout
	l.schemas = headerLen
	l.coarse = l.schemas + int64(h.PackSchemaLen)
	l.fine = l.coarse + int64(h.ByteIndexLen)*4
	l.blocks = l.fine + int64(h.MainIndexLen)*4
	l.regions = l.blocks + int64(h.ItemCount)*h.blockLen()
	l.cities = l.regions + int64(h.RegionBlobSize)
	l.end = l.cities + int64(h.CityBlobSize)
	return l
}
