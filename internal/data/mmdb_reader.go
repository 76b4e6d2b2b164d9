package data

import (
	"fmt"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// MmdbReader implements LocationLookup using a MaxMind MMDB file. Results are
// shaped like SxGeo records so both backends serve the same API.
type MmdbReader struct {
	db   *geoip2.Reader
	path string
}

// NewMmdbReader opens the MMDB file at the given path and returns a reader.
func NewMmdbReader(path string) (*MmdbReader, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MMDB file: %w", err)
	}
	return &MmdbReader{db: db, path: path}, nil
}

// LookupCountry returns the ISO-3166 country code for the given IP address.
func (r *MmdbReader) LookupCountry(ip net.IP) (string, error) {
	record, err := r.db.Country(ip)
	if err != nil {
		return "", fmt.Errorf("country lookup failed: %w", err)
	}
	return record.Country.IsoCode, nil
}

// LookupCountryID maps the ISO code of ip onto the SxGeo country table.
func (r *MmdbReader) LookupCountryID(ip net.IP) (int, error) {
	code, err := r.LookupCountry(ip)
	if err != nil || code == "" {
		return 0, err
	}
	return sxgeo.CountryID(code), nil
}

// LookupCity returns the city and country for ip. City databases are
// required; country databases resolve with an empty city.
func (r *MmdbReader) LookupCity(ip net.IP) (*sxgeo.CityLocation, error) {
	record, err := r.db.City(ip)
	if err != nil {
		return nil, fmt.Errorf("city lookup failed: %w", err)
	}
	iso := record.Country.IsoCode
	if iso == "" {
		return nil, nil
	}
	return &sxgeo.CityLocation{
		Kind:    mmdbKind(record),
		City:    mmdbCity(record),
		Country: sxgeo.CountryRef{ID: sxgeo.CountryID(iso), ISO: iso},
	}, nil
}

// LookupCityFull returns the city, first subdivision and country for ip.
func (r *MmdbReader) LookupCityFull(ip net.IP) (*sxgeo.FullLocation, error) {
	record, err := r.db.City(ip)
	if err != nil {
		return nil, fmt.Errorf("city lookup failed: %w", err)
	}
	iso := record.Country.IsoCode
	if iso == "" {
		return nil, nil
	}

	var region sxgeo.Record
	regionFields := []string{"id", "iso", "name_ru", "name_en"}
	if len(record.Subdivisions) > 0 {
		s := record.Subdivisions[0]
		region = sxgeo.NewRecord(regionFields, []any{int64(s.GeoNameID), s.IsoCode, s.Names["ru"], s.Names["en"]})
	} else {
		region = sxgeo.NewRecord(regionFields, []any{int64(0), "", "", ""})
	}

	return &sxgeo.FullLocation{
		Kind:   mmdbKind(record),
		City:   mmdbCity(record),
		Region: region,
		Country: sxgeo.NewRecord(
			[]string{"id", "iso", "name_ru", "name_en"},
			[]any{int64(sxgeo.CountryID(iso)), iso, record.Country.Names["ru"], record.Country.Names["en"]},
		),
	}, nil
}

// Info describes the loaded database.
func (r *MmdbReader) Info() Info {
	md := r.db.Metadata()
	return Info{
		Backend: "mmdb",
		Path:    r.path,
		BuiltAt: time.Unix(int64(md.BuildEpoch), 0).UTC(),
		Details: map[string]any{
			"database_type": md.DatabaseType,
			"ip_version":    md.IPVersion,
			"node_count":    md.NodeCount,
		},
	}
}

// Close releases the MMDB reader resources.
func (r *MmdbReader) Close() error {
	return r.db.Close()
}

func mmdbKind(record *geoip2.City) sxgeo.Kind {
	if record.City.GeoNameID == 0 {
		return sxgeo.KindCountry
	}
	return sxgeo.KindCity
}

func mmdbCity(record *geoip2.City) sxgeo.Record {
	return sxgeo.NewRecord(
		[]string{"id", "lat", "lon", "name_ru", "name_en"},
		[]any{
			int64(record.City.GeoNameID),
			record.Location.Latitude,
			record.Location.Longitude,
			record.City.Names["ru"],
			record.City.Names["en"],
		},
	)
}
