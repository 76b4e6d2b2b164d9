package data

import (
	"fmt"
	"net"
	"time"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// SxGeoReader implements LocationLookup using a Sypex Geo database.
type SxGeoReader struct {
	db   *sxgeo.DB
	path string
}

// NewSxGeoReader loads the SxGeo file at path.
func NewSxGeoReader(path string, mode sxgeo.Mode) (*SxGeoReader, error) {
	db, err := sxgeo.Open(path, sxgeo.WithMode(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to open SxGeo file: %w", err)
	}
	return &SxGeoReader{db: db, path: path}, nil
}

// LookupCountry returns the ISO-3166 country code for the given IP address.
func (r *SxGeoReader) LookupCountry(ip net.IP) (string, error) {
	addr, err := ipv4(ip)
	if err != nil {
		return "", err
	}
	code, err := r.db.CountryCode(addr)
	if err != nil {
		return "", fmt.Errorf("country lookup failed: %w", err)
	}
	return code, nil
}

// LookupCountryID returns the country table id stored for ip.
func (r *SxGeoReader) LookupCountryID(ip net.IP) (int, error) {
	addr, err := ipv4(ip)
	if err != nil {
		return 0, err
	}
	id, err := r.db.CountryID(addr)
	if err != nil {
		return 0, fmt.Errorf("country lookup failed: %w", err)
	}
	return id, nil
}

// LookupCity returns the city and country for ip.
func (r *SxGeoReader) LookupCity(ip net.IP) (*sxgeo.CityLocation, error) {
	addr, err := ipv4(ip)
	if err != nil {
		return nil, err
	}
	loc, err := r.db.City(addr)
	if err != nil {
		return nil, fmt.Errorf("city lookup failed: %w", err)
	}
	return loc, nil
}

// LookupCityFull returns the city, region and country records for ip.
func (r *SxGeoReader) LookupCityFull(ip net.IP) (*sxgeo.FullLocation, error) {
	addr, err := ipv4(ip)
	if err != nil {
		return nil, err
	}
	loc, err := r.db.CityFull(addr)
	if err != nil {
		return nil, fmt.Errorf("city lookup failed: %w", err)
	}
	return loc, nil
}

// Info describes the loaded database.
func (r *SxGeoReader) Info() Info {
	about := r.db.About()
	return Info{
		Backend: "sxgeo",
		Path:    r.path,
		BuiltAt: time.Unix(int64(about.Timestamp), 0).UTC(),
		Details: about,
	}
}

// Close releases the database file.
func (r *SxGeoReader) Close() error {
	return r.db.Close()
}

func ipv4(ip net.IP) (string, error) {
	v4 := ip.To4()
	if v4 == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAddress, ip)
	}
	return v4.String(), nil
}
