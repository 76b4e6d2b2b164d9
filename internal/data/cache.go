package data

import (
	"fmt"
	"net"

	"github.com/hashicorp/golang-lru/arc/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/TomasB/sxgeo/internal/sxgeo"
)

// CachePolicy selects the eviction policy of a CachedLookup.
type CachePolicy string

const (
	CacheLRU CachePolicy = "lru"
	CacheARC CachePolicy = "arc"
)

// ParseCachePolicy converts "lru" or "arc" to a CachePolicy.
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch p := CachePolicy(s); p {
	case "":
		return CacheLRU, nil
	case CacheLRU, CacheARC:
		return p, nil
	}
	return "", fmt.Errorf("unknown cache policy %q", s)
}

// cache is the subset shared by the lru and arc caches.
type cache[V any] interface {
	Get(key string) (V, bool)
	Add(key string, value V)
	Purge()
	Len() int
}

type lruCache[V any] struct{ *lru.Cache[string, V] }

func (c lruCache[V]) Add(key string, value V) { c.Cache.Add(key, value) }

func newCache[V any](policy CachePolicy, size int) (cache[V], error) {
	switch policy {
	case CacheARC:
		c, err := arc.NewARC[string, V](size)
		if err != nil {
			return nil, err
		}
		return c, nil
	case CacheLRU, "":
		c, err := lru.New[string, V](size)
		if err != nil {
			return nil, err
		}
		return lruCache[V]{c}, nil
	}
	return nil, fmt.Errorf("unknown cache policy %q", policy)
}

// CachedLookup memoises lookups per address. Not-found results are cached
// too; errors are not.
type CachedLookup struct {
	LocationLookup

	countries cache[string]
	ids       cache[int]
	cities    cache[*sxgeo.CityLocation]
	full      cache[*sxgeo.FullLocation]
}

// NewCachedLookup wraps next with caches of size entries per lookup kind.
func NewCachedLookup(next LocationLookup, policy CachePolicy, size int) (*CachedLookup, error) {
	c := &CachedLookup{LocationLookup: next}
	var err error
	if c.countries, err = newCache[string](policy, size); err != nil {
		return nil, fmt.Errorf("country cache: %w", err)
	}
	if c.ids, err = newCache[int](policy, size); err != nil {
		return nil, fmt.Errorf("country id cache: %w", err)
	}
	if c.cities, err = newCache[*sxgeo.CityLocation](policy, size); err != nil {
		return nil, fmt.Errorf("city cache: %w", err)
	}
	if c.full, err = newCache[*sxgeo.FullLocation](policy, size); err != nil {
		return nil, fmt.Errorf("full city cache: %w", err)
	}
	return c, nil
}

func (c *CachedLookup) LookupCountry(ip net.IP) (string, error) {
	return cached(c.countries, ip, c.LocationLookup.LookupCountry)
}

func (c *CachedLookup) LookupCountryID(ip net.IP) (int, error) {
	return cached(c.ids, ip, c.LocationLookup.LookupCountryID)
}

func (c *CachedLookup) LookupCity(ip net.IP) (*sxgeo.CityLocation, error) {
	return cached(c.cities, ip, c.LocationLookup.LookupCity)
}

func (c *CachedLookup) LookupCityFull(ip net.IP) (*sxgeo.FullLocation, error) {
	return cached(c.full, ip, c.LocationLookup.LookupCityFull)
}

// Purge drops every cached entry. It is called after a database reload.
func (c *CachedLookup) Purge() {
	c.countries.Purge()
	c.ids.Purge()
	c.cities.Purge()
	c.full.Purge()
}

// Len returns the number of cached entries across all lookup kinds.
func (c *CachedLookup) Len() int {
	return c.countries.Len() + c.ids.Len() + c.cities.Len() + c.full.Len()
}

func cached[V any](c cache[V], ip net.IP, fn func(net.IP) (V, error)) (V, error) {
	key := ip.String()
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := fn(ip)
	if err != nil {
		return v, err
	}
	c.Add(key, v)
	return v, nil
}
