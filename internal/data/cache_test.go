package data

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

func TestCachedLookup(t *testing.T) {
	for _, policy := range []CachePolicy{CacheLRU, CacheARC} {
		t.Run(string(policy), func(t *testing.T) {
			stub := &stubLookup{}
			c, err := NewCachedLookup(stub, policy, 16)
			require.NoError(t, err)

			ip := net.ParseIP("1.2.3.4")
			for _i := 0; _i < 3; _i++ {
				code, err := c.LookupCountry(ip)
				require.NoError(t, err)
				assert.Equal(t, "RU", code)
			}
			assert.Equal(t, 1, stub.calls)

			// Misses are cached as well.
			for _i := 0; _i < 2; _i++ {
				loc, err := c.LookupCity(net.ParseIP("5.6.7.8"))
				require.NoError(t, err)
				assert.Nil(t, loc)
			}
			assert.Equal(t, 2, stub.calls)

			full, err := c.LookupCityFull(ip)
			require.NoError(t, err)
			assert.NotNil(t, full)
			assert.Equal(t, 3, stub.calls)

			for _i := 0; _i < 2; _i++ {
				id, err := c.LookupCountryID(ip)
				require.NoError(t, err)
				assert.Equal(t, sxgeo.CountryID("RU"), id)
			}
			assert.Equal(t, 4, stub.calls)
			assert.Equal(t, 4, c.Len())

			c.Purge()
			assert.Zero(t, c.Len())
			_, err = c.LookupCountry(ip)
			require.NoError(t, err)
			assert.Equal(t, 5, stub.calls)
		})
	}
}

func TestCachedLookup_ErrorsNotCached(t *testing.T) {
	stub := &stubLookup{failIP: "1.1.1.1"}
	c, err := NewCachedLookup(stub, CacheLRU, 16)
	require.NoError(t, err)

	for _i := 0; _i < 2; _i++ {
		_, err := c.LookupCountry(net.ParseIP("1.1.1.1"))
		assert.ErrorIs(t, err, errStub)
	}
	assert.Equal(t, 2, stub.calls)
	assert.Zero(t, c.Len())
}

func TestCachedLookup_Passthrough(t *testing.T) {
	stub := &stubLookup{}
	c, err := NewCachedLookup(stub, CacheLRU, 16)
	require.NoError(t, err)

	assert.Equal(t, "stub", c.Info().Backend)
	require.NoError(t, c.Close())
	assert.True(t, stub.closed)
}

func TestCachedLookup_Eviction(t *testing.T) {
	stub := &stubLookup{}
	c, err := NewCachedLookup(stub, CacheLRU, 2)
	require.NoError(t, err)

	for _, ip := range []string{"1.0.0.1", "1.0.0.2", "1.0.0.3", "1.0.0.1"} {
		_, err := c.LookupCountry(net.ParseIP(ip))
		require.NoError(t, err)
	}
	assert.Equal(t, 4, stub.calls)
	assert.Equal(t, 2, c.Len())
}

func TestNewCachedLookup_InvalidSize(t *testing.T) {
	for _, policy := range []CachePolicy{CacheLRU, CacheARC} {
		_, err := NewCachedLookup(&stubLookup{}, policy, 0)
		assert.Error(t, err, policy)
	}
	_, err := NewCachedLookup(&stubLookup{}, "fifo", 8)
	assert.Error(t, err)
}

func TestParseCachePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    CachePolicy
		wantErr bool
	}{
		{in: "", want: CacheLRU},
		{in: "lru", want: CacheLRU},
		{in: "arc", want: CacheARC},
		{in: "LFU", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCachePolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
