// Package sxgeotest builds small SxGeo databases for tests.
package sxgeotest

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// Schemas used by the default city builder; they mirror the layout of the
// public SxGeoCity files.
const (
	CountrySchema = "T:id/c2:iso/n2:lat/n2:lon/b:name_ru/b:name_en"
	RegionSchema  = "M:id/M:country_seek/c3:iso/b:name_ru/b:name_en"
	CitySchema    = "M:id/M:region_seek/T:country_id/N5:lat/N5:lon/b:name_ru/b:name_en"
)

type blockRange struct {
	key     sxgeo.Key
	payload uint32
}

// Builder accumulates ranges and records and serialises them as a database
// file. Country records must be added before city records since both share
// the city blob.
type Builder struct {
	Timestamp    uint32
	Type         uint8
	Charset      uint8
	ByteIndexLen int
	Range        int
	IDLen        int
	Schemas      [3]string // country, region, city

	ranges    []blockRange
	countries []byte
	regions   []byte
	cities    []byte
	maxLen    [3]int
}

// NewCity returns a builder for a city database using the default schemas.
func NewCity() *Builder {
	return &Builder{
		Timestamp:    1700000000,
		Type:         4,
		ByteIndexLen: 224,
		Range:        4,
		IDLen:        3,
		Schemas:      [3]string{CountrySchema, RegionSchema, CitySchema},
		countries:    []byte{0},
		regions:      []byte{0},
	}
}

// NewCountry returns a builder for a country-only database whose payloads
// are country table ids.
func NewCountry() *Builder {
	return &Builder{
		Timestamp:    1700000000,
		Type:         1,
		ByteIndexLen: 224,
		Range:        4,
		IDLen:        1,
	}
}

// AddRange starts a new address range at ip whose payload is id or seek.
func (b *Builder) AddRange(ip string, payload uint32) *Builder {
	k, ok := sxgeo.ParseKey(ip)
	if !ok {
		panic("sxgeotest: bad ip " + ip)
	}
	b.ranges = append(b.ranges, blockRange{key: k, payload: payload})
	return b
}

// AddCountry packs a country record and returns its seek.
func (b *Builder) AddCountry(values map[string]any) uint32 {
	if len(b.cities) > 0 {
		panic("sxgeotest: countries must be added before cities")
	}
	rec := Pack(b.Schemas[0], values)
	seek := uint32(len(b.countries))
	b.countries = append(b.countries, rec...)
	b.maxLen[0] = max(b.maxLen[0], len(rec))
	return seek
}

// AddRegion packs a region record and returns its seek.
func (b *Builder) AddRegion(values map[string]any) uint32 {
	rec := Pack(b.Schemas[1], values)
	seek := uint32(len(b.regions))
	b.regions = append(b.regions, rec...)
	b.maxLen[1] = max(b.maxLen[1], len(rec))
	return seek
}

// AddCity packs a city record and returns its seek.
func (b *Builder) AddCity(values map[string]any) uint32 {
	rec := Pack(b.Schemas[2], values)
	seek := uint32(len(b.countries) + len(b.cities))
	b.cities = append(b.cities, rec...)
	b.maxLen[2] = max(b.maxLen[2], len(rec))
	return seek
}

// Bytes serialises the database.
func (b *Builder) Bytes() []byte {
	ranges := append([]blockRange(nil), b.ranges...)
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].key.Compare(ranges[j].key) < 0
	})

	var pack string
	if b.Schemas != [3]string{} {
		pack = strings.Join(b.Schemas[:], "\x00")
	}

	n := len(ranges)
	mainLen := (n + b.Range - 1) / b.Range
	cityBlob := append(append([]byte(nil), b.countries...), b.cities...)
	regionBlob := b.regions
	if len(b.cities) == 0 && len(b.countries) <= 1 {
		cityBlob = nil
	}
	if len(regionBlob) <= 1 {
		regionBlob = nil
	}

	out := make([]byte, 40, 40+len(pack)+4*b.ByteIndexLen+4*mainLen+n*(3+b.IDLen)+len(regionBlob)+len(cityBlob))
	copy(out, "SxG")
	out[3] = 22
	binary.BigEndian.PutUint32(out[4:], b.Timestamp)
	out[8] = b.Type
	out[9] = b.Charset
	out[10] = byte(b.ByteIndexLen)
	binary.BigEndian.PutUint16(out[11:], uint16(mainLen))
	binary.BigEndian.PutUint16(out[13:], uint16(b.Range))
	binary.BigEndian.PutUint32(out[15:], uint32(n))
	out[19] = byte(b.IDLen)
	binary.BigEndian.PutUint16(out[20:], uint16(b.maxLen[1]))
	binary.BigEndian.PutUint16(out[22:], uint16(b.maxLen[2]))
	binary.BigEndian.PutUint32(out[24:], uint32(len(regionBlob)))
	binary.BigEndian.PutUint32(out[28:], uint32(len(cityBlob)))
	binary.BigEndian.PutUint16(out[32:], uint16(b.maxLen[0]))
	if len(cityBlob) > 0 {
		binary.BigEndian.PutUint32(out[34:], uint32(len(b.countries)))
	}
	binary.BigEndian.PutUint16(out[38:], uint16(len(pack)))

	out = append(out, pack...)
	for o := 0; o < b.ByteIndexLen; o++ {
		end := sort.Search(n, func(i int) bool { return int(ranges[i].key[0]) > o })
		out = binary.BigEndian.AppendUint32(out, uint32(end))
	}
	for i := 0; i < mainLen; i++ {
		k := ranges[i*b.Range].key
		out = append(out, k[:]...)
	}
	for _, r := range ranges {
		out = append(out, r.key[1:]...)
		var p [4]byte
		binary.BigEndian.PutUint32(p[:], r.payload)
		out = append(out, p[4-b.IDLen:]...)
	}
	out = append(out, regionBlob...)
	out = append(out, cityBlob...)
	return out
}

// WriteFile serialises the database to path.
func (b *Builder) WriteFile(path string) error {
	return os.WriteFile(path, b.Bytes(), 0o644)
}

// Pack encodes values according to a pack schema string. Missing values are
// encoded as zero.
func Pack(schema string, values map[string]any) []byte {
	s, err := sxgeo.ParseSchema(schema)
	if err != nil {
		panic(err)
	}

	var out []byte
	for _, f := range s.Fields() {
		v := values[f.Name]
		switch f.Kind {
		case sxgeo.Int8, sxgeo.UInt8:
			out = append(out, byte(toInt(v)))
		case sxgeo.Int16BE:
			out = binary.BigEndian.AppendUint16(out, uint16(toInt(v)))
		case sxgeo.UInt16LE:
			out = binary.LittleEndian.AppendUint16(out, uint16(toInt(v)))
		case sxgeo.Int24BE:
			u := uint32(toInt(v))
			out = append(out, byte(u>>16), byte(u>>8), byte(u))
		case sxgeo.UInt24LE:
			u := uint32(toInt(v))
			out = append(out, byte(u), byte(u>>8), byte(u>>16))
		case sxgeo.Int32BE, sxgeo.UInt32BE:
			out = binary.BigEndian.AppendUint32(out, uint32(toInt(v)))
		case sxgeo.Float32BE:
			out = binary.BigEndian.AppendUint32(out, math.Float32bits(float32(toFloat(v))))
		case sxgeo.Float64BE:
			out = binary.BigEndian.AppendUint64(out, math.Float64bits(toFloat(v)))
		case sxgeo.FixedDecimal16LE:
			out = binary.LittleEndian.AppendUint16(out, uint16(math.Round(toFloat(v)*math.Pow10(f.Scale))))
		case sxgeo.FixedDecimal32LE:
			out = binary.LittleEndian.AppendUint32(out, uint32(int32(math.Round(toFloat(v)*math.Pow10(f.Scale)))))
		case sxgeo.FixedString:
			str, _ := v.(string)
			str = fmt.Sprintf("%-*s", f.Size, str)
			out = append(out, str[:f.Size]...)
		case sxgeo.CString:
			str, _ := v.(string)
			out = append(out, str...)
			out = append(out, 0)
		}
	}
	return out
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
