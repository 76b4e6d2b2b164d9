package data

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TomasB/sxgeo/internal/sxgeo"
	"github.com/TomasB/sxgeo/internal/sxgeo/sxgeotest"
)

// writeCityDB writes a city database where 1.0.0.0/8 resolves to Russia only
// and 2.0.0.0/8 to Moscow.
func writeCityDB(t *testing.T) string {
	t.Helper()

	b := sxgeotest.NewCity()
	ru := b.AddCountry(map[string]any{
		"id": sxgeo.CountryID("RU"), "iso": "RU", "lat": 60.0, "lon": 100.0,
		"name_ru": "Россия", "name_en": "Russia",
	})
	mow := b.AddRegion(map[string]any{
		"id": 524894, "country_seek": ru, "iso": "MOW",
		"name_ru": "Москва", "name_en": "Moscow",
	})
	moscow := b.AddCity(map[string]any{
		"id": 524901, "region_seek": mow, "country_id": sxgeo.CountryID("RU"),
		"lat": 55.75222, "lon": 37.61556, "name_ru": "Москва", "name_en": "Moscow",
	})
	b.AddRange("1.0.0.0", ru).AddRange("2.0.0.0", moscow).AddRange("3.0.0.0", 0)

	path := filepath.Join(t.TempDir(), "SxGeoCity.dat")
	require.NoError(t, b.WriteFile(path))
	return path
}

// countryDB returns a country database mapping 1.0.0.0/8 to iso.
func countryDB(iso string) []byte {
	return sxgeotest.NewCountry().
		AddRange("1.0.0.0", uint32(sxgeo.CountryID(iso))).
		AddRange("2.0.0.0", 0).
		Bytes()
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(t *testing.T, path string, data []byte) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

// stubLookup is a hand-written LocationLookup that counts calls.
type stubLookup struct {
	calls  int
	failIP string
	closed bool
}

var errStub = errors.New("stub failure")

func (s *stubLookup) LookupCountry(ip net.IP) (string, error) {
	s.calls++
	switch {
	case ip.String() == s.failIP:
		return "", errStub
	case ip.To4() == nil:
		return "", ErrUnsupportedAddress
	case ip[len(ip)-4] == 1:
		return "RU", nil
	}
	return "", nil
}

func (s *stubLookup) LookupCountryID(ip net.IP) (int, error) {
	code, err := s.LookupCountry(ip)
	if err != nil || code == "" {
		return 0, err
	}
	return sxgeo.CountryID(code), nil
}

func (s *stubLookup) LookupCity(ip net.IP) (*sxgeo.CityLocation, error) {
	code, err := s.LookupCountry(ip)
	if err != nil || code == "" {
		return nil, err
	}
	return &sxgeo.CityLocation{Kind: sxgeo.KindCountry, Country: sxgeo.CountryRef{ID: sxgeo.CountryID(code), ISO: code}}, nil
}

func (s *stubLookup) LookupCityFull(ip net.IP) (*sxgeo.FullLocation, error) {
	code, err := s.LookupCountry(ip)
	if err != nil || code == "" {
		return nil, err
	}
	return &sxgeo.FullLocation{Kind: sxgeo.KindCountry}, nil
}

func (s *stubLookup) Info() Info { return Info{Backend: "stub"} }

func (s *stubLookup) Close() error {
	s.closed = true
	return nil
}
