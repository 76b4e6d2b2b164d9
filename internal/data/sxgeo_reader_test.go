package data

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

func TestSxGeoReader(t *testing.T) {
	path := writeCityDB(t)

	for _, mode := range []sxgeo.Mode{sxgeo.ModeMemory, sxgeo.ModeMmap, sxgeo.ModeFile} {
		t.Run(mode.String(), func(t *testing.T) {
			reader, err := NewSxGeoReader(path, mode)
			require.NoError(t, err)
			defer reader.Close()

			code, err := reader.LookupCountry(net.ParseIP("1.2.3.4"))
			require.NoError(t, err)
			assert.Equal(t, "RU", code)

			code, err = reader.LookupCountry(net.ParseIP("3.2.3.4"))
			require.NoError(t, err)
			assert.Empty(t, code)

			id, err := reader.LookupCountryID(net.ParseIP("2.10.20.30"))
			require.NoError(t, err)
			assert.Equal(t, sxgeo.CountryID("RU"), id)

			id, err = reader.LookupCountryID(net.ParseIP("3.2.3.4"))
			require.NoError(t, err)
			assert.Zero(t, id)

			loc, err := reader.LookupCity(net.ParseIP("2.10.20.30"))
			require.NoError(t, err)
			require.NotNil(t, loc)
			assert.Equal(t, sxgeo.KindCity, loc.Kind)
			assert.Equal(t, "Moscow", loc.City.String("name_en"))
			assert.Equal(t, "RU", loc.Country.ISO)

			full, err := reader.LookupCityFull(net.ParseIP("2.10.20.30"))
			require.NoError(t, err)
			require.NotNil(t, full)
			assert.Equal(t, "MOW", full.Region.String("iso"))
			assert.Equal(t, "Russia", full.Country.String("name_en"))

			loc, err = reader.LookupCity(net.ParseIP("10.0.0.1"))
			require.NoError(t, err)
			assert.Nil(t, loc)
		})
	}
}

func TestSxGeoReader_IPv6(t *testing.T) {
	reader, err := NewSxGeoReader(writeCityDB(t), sxgeo.ModeMemory)
	require.NoError(t, err)
	defer reader.Close()

	ip := net.ParseIP("2001:db8::1")
	_, err = reader.LookupCountry(ip)
	assert.ErrorIs(t, err, ErrUnsupportedAddress)
	_, err = reader.LookupCity(ip)
	assert.ErrorIs(t, err, ErrUnsupportedAddress)
	_, err = reader.LookupCityFull(ip)
	assert.ErrorIs(t, err, ErrUnsupportedAddress)

	// IPv4-mapped addresses are plain IPv4.
	code, err := reader.LookupCountry(net.ParseIP("::ffff:1.2.3.4"))
	require.NoError(t, err)
	assert.Equal(t, "RU", code)
}

func TestSxGeoReader_Info(t *testing.T) {
	path := writeCityDB(t)
	reader, err := NewSxGeoReader(path, sxgeo.ModeMemory)
	require.NoError(t, err)
	defer reader.Close()

	info := reader.Info()
	assert.Equal(t, "sxgeo", info.Backend)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), info.BuiltAt)
	about, ok := info.Details.(sxgeo.About)
	require.True(t, ok)
	assert.Equal(t, "2023.11.14", about.Created)
}

func TestNewSxGeoReader_InvalidPath(t *testing.T) {
	_, err := NewSxGeoReader("/nonexistent/SxGeo.dat", sxgeo.ModeMemory)
	assert.Error(t, err)
}

func TestOpen_SelectsBackend(t *testing.T) {
	lookup, err := Open(writeCityDB(t), sxgeo.ModeMemory)
	require.NoError(t, err)
	defer lookup.Close()
	assert.Equal(t, "sxgeo", lookup.Info().Backend)

	_, err = Open("/nonexistent/GeoLite2-City.MMDB", sxgeo.ModeMemory)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MMDB")
}
