package sxgeo

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoCityData is returned by city lookups against a country-only database.
var ErrNoCityData = errors.New("sxgeo: database has no city data")

// Internal back-references stripped from the records handed to callers.
const (
	fieldCountryID   = "country_id"
	fieldRegionSeek  = "region_seek"
	fieldCountrySeek = "country_seek"
)

// Kind tells which record a location was resolved from.
type Kind uint8

const (
	// KindCountry means the address only maps to a country; the city record
	// is zero-filled apart from the country's coordinates, and its country_id
	// stays 0.
	KindCountry Kind = iota
	// KindCity means the address maps to a city record.
	KindCity
)

func (k Kind) String() string {
	if k == KindCity {
		return "city"
	}
	return "country"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// CountryRef identifies a country by table id and ISO 3166-1 alpha-2 code.
type CountryRef struct {
	ID  int    `json:"id"`
	ISO string `json:"iso"`
}

// CityLocation is the result of City.
type CityLocation struct {
	Kind    Kind       `json:"kind"`
	City    Record     `json:"city"`
	Country CountryRef `json:"country"`
}

// FullLocation is the result of CityFull.
type FullLocation struct {
	Kind    Kind   `json:"kind"`
	City    Record `json:"city"`
	Region  Record `json:"region"`
	Country Record `json:"country"`
}

// Seek returns the raw block payload for ip: a country id in country-only
// databases, otherwise an offset into the city blob. It returns 0 when the
// address is malformed, reserved or not covered.
func (db *DB) Seek(ip string) (uint32, error) {
	k, ok := ParseKey(ip)
	if !ok {
		return 0, nil
	}
	return db.SeekKey(k)
}

// SeekKey is Seek for an already parsed key.
func (db *DB) SeekKey(k Key) (uint32, error) {
	if !db.index.covers(k) {
		return 0, nil
	}
	if min, max := db.index.bucket(k); max-min == 1 {
		return db.blocks.payloadAfter(max)
	}
	min, max := db.index.narrow(k)
	return db.blocks.resolve(k, min, max)
}

// CountryCode returns the ISO code for ip, or "" when it is not found.
func (db *DB) CountryCode(ip string) (string, error) {
	if !db.HasCities() {
		id, err := db.Seek(ip)
		return ISO(int(id)), err
	}
	loc, err := db.City(ip)
	if err != nil || loc == nil {
		return "", err
	}
	return loc.Country.ISO, nil
}

// CountryID returns the country table id for ip, or 0 when it is not found.
func (db *DB) CountryID(ip string) (int, error) {
	if !db.HasCities() {
		id, err := db.Seek(ip)
		return int(id), err
	}
	loc, err := db.City(ip)
	if err != nil || loc == nil {
		return 0, err
	}
	return loc.Country.ID, nil
}

// City returns the city and country for ip, or nil when it is not found.
func (db *DB) City(ip string) (*CityLocation, error) {
	seek, err := db.citySeek(ip)
	if err != nil || seek == 0 {
		return nil, err
	}
	r, err := db.resolveCity(seek)
	if err != nil {
		return nil, err
	}

	loc := &CityLocation{Kind: r.kind, City: r.city.without(fieldRegionSeek)}
	if r.kind == KindCountry {
		loc.Country = CountryRef{ID: int(r.country.Int("id")), ISO: r.country.String("iso")}
	} else {
		loc.Country = r.countryRef
	}
	return loc, nil
}

// CityFull returns the city, region and country records for ip, or nil when
// it is not found.
func (db *DB) CityFull(ip string) (*FullLocation, error) {
	seek, err := db.citySeek(ip)
	if err != nil || seek == 0 {
		return nil, err
	}
	r, err := db.resolveCity(seek)
	if err != nil {
		return nil, err
	}

	region, err := db.readRecord(kindRegion, uint32(r.city.Int(fieldRegionSeek)))
	if err != nil {
		return nil, fmt.Errorf("region record: %w", err)
	}
	country := r.country
	if r.kind == KindCity {
		// The region's country reference wins over the id cached on the city.
		country, err = db.readRecord(kindCountry, uint32(region.Int(fieldCountrySeek)))
		if err != nil {
			return nil, fmt.Errorf("country record: %w", err)
		}
	}

	return &FullLocation{
		Kind:    r.kind,
		City:    r.city.without(fieldRegionSeek),
		Region:  region.without(fieldCountrySeek),
		Country: country,
	}, nil
}

func (db *DB) citySeek(ip string) (uint32, error) {
	if !db.HasCities() {
		return 0, ErrNoCityData
	}
	return db.Seek(ip)
}

type resolved struct {
	kind       Kind
	city       Record // still carries region_seek
	country    Record // set for KindCountry only
	countryRef CountryRef
}

// resolveCity decodes the record at seek. Seeks below the country blob size
// point at country records.
func (db *DB) resolveCity(seek uint32) (resolved, error) {
	if seek < db.header.CountryBlobSize {
		country, err := db.readRecord(kindCountry, seek)
		if err != nil {
			return resolved{}, fmt.Errorf("country record: %w", err)
		}
		city := db.schemas[kindCity].Zero()
		for _, f := range []string{"lat", "lon"} {
			if v, ok := country.Value(f); ok {
				city = city.with(f, v)
			}
		}
		return resolved{kind: KindCountry, city: city, country: country}, nil
	}

	city, err := db.readRecord(kindCity, seek)
	if err != nil {
		return resolved{}, fmt.Errorf("city record: %w", err)
	}
	id := int(city.Int(fieldCountryID))
	return resolved{
		kind:       KindCity,
		city:       city.without(fieldCountryID),
		countryRef: CountryRef{ID: id, ISO: ISO(id)},
	}, nil
}

// readRecord decodes the record of the given kind at seek. A zero seek or a
// zero max length yields the schema's zero record.
func (db *DB) readRecord(kind int, seek uint32) (Record, error) {
	var (
		src section
		max uint16
	)
	switch kind {
	case kindCountry:
		src, max = db.cities, db.header.MaxCountryRecLen
	case kindRegion:
		src, max = db.regions, db.header.MaxRegionRecLen
	default:
		src, max = db.cities, db.header.MaxCityRecLen
	}

	var raw []byte
	if seek != 0 && max != 0 {
		var err error
		if raw, err = src.read(int64(seek), int64(max)); err != nil {
			return Record{}, err
		}
	}
	return db.schemas[kind].Decode(raw)
}
