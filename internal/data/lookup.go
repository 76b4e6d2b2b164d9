package data

import (
	"errors"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

var (
	// ErrUnsupportedAddress is returned by backends that cannot resolve the
	// address family, e.g. IPv6 against an SxGeo database.
	ErrUnsupportedAddress = errors.New("unsupported address family")

	// ErrNotLoaded is returned when no database is currently loaded.
	ErrNotLoaded = errors.New("database not loaded")
)

// CountryLookup defines the interface for IP-to-country lookups.
type CountryLookup interface {
	// LookupCountry returns the ISO-3166 country code for the given IP address.
	// An address without data yields an empty code and no error.
	LookupCountry(ip net.IP) (string, error)

	// Close releases any resources held by the lookup implementation.
	Close() error
}

// LocationLookup resolves addresses down to city level.
type LocationLookup interface {
	CountryLookup

	// LookupCountryID returns the SxGeo country table id for ip, or 0 if
	// there is none.
	LookupCountryID(ip net.IP) (int, error)

	// LookupCity returns the city and country for ip, or nil if there is none.
	LookupCity(ip net.IP) (*sxgeo.CityLocation, error)

	// LookupCityFull also resolves the region and the full country record.
	LookupCityFull(ip net.IP) (*sxgeo.FullLocation, error)

	// Info describes the loaded database.
	Info() Info
}

// Info describes a loaded database.
type Info struct {
	Backend string    `json:"backend"`
	Path    string    `json:"path"`
	BuiltAt time.Time `json:"built_at"`
	Details any       `json:"details,omitempty"`
}

// Open opens path with the backend matching its extension: ".mmdb" files use
// MaxMind, everything else is read as SxGeo in the given mode.
func Open(path string, mode sxgeo.Mode) (LocationLookup, error) {
	if strings.EqualFold(filepath.Ext(path), ".mmdb") {
		return NewMmdbReader(path)
	}
	return NewSxGeoReader(path, mode)
}
