// Package sxgeo reads Sypex Geo (SxGeo 2.2) databases and resolves IPv4
// addresses to country, region and city records.
//
// A database is loaded once with Open or New and is read-only afterwards, so
// a single *DB may serve any number of goroutines. Lookups that find nothing
// are not errors: CountryCode returns "", CountryID returns 0 and the city
// lookups return nil.
package sxgeo
