package sxgeo

import (
	"bytes"
	"sort"
	"strings"
)

// Key is an IPv4 address in big-endian byte order. Keys are ordered by
// unsigned byte-wise comparison.
type Key [4]byte

// ParseKey parses a dotted-quad IPv4 address. Each octet must be one to three
// decimal digits with a value of at most 255; leading zeros are accepted.
func ParseKey(ip string) (Key, bool) {
	var k Key
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return k, false
	}
	for i, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return k, false
		}
		n := 0
		for _, c := range []byte(p) {
			if c < '0' || c > '9' {
				return k, false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return k, false
		}
		k[i] = byte(n)
	}
	return k, true
}

// Compare orders keys as unsigned big-endian integers.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

// reserved reports whether the leading octet is one that is never looked up.
func (k Key) reserved() bool {
	return k[0] == 0 || k[0] == 10 || k[0] == 127
}

// index is the two-level search structure in front of the block table.
type index struct {
	coarse []uint32 // coarse[o] is the first block past leading octet o
	fine   []Key    // fine[i] is the key of block i*rng
	rng    uint32
	items  uint32
}

func newIndex(h Header, coarse, fine []byte) *index {
	ix := &index{
		coarse: make([]uint32, h.ByteIndexLen),
		fine:   make([]Key, h.MainIndexLen),
		rng:    uint32(h.Range),
		items:  h.ItemCount,
	}
	for i := range ix.coarse {
		b := coarse[i*4 : i*4+4]
		ix.coarse[i] = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}
	for i := range ix.fine {
		copy(ix.fine[i][:], fine[i*4:i*4+4])
	}
	return ix
}

// covers reports whether k can be looked up at all.
func (ix *index) covers(k Key) bool {
	return !k.reserved() && int(k[0]) < len(ix.coarse)
}

// bucket returns the block range [min, max) of k's leading octet.
func (ix *index) bucket(k Key) (min, max uint32) {
	o := int(k[0])
	return ix.coarse[o-1], ix.coarse[o]
}

// narrow returns the block range [min, max) that must contain k's block.
// The caller has checked covers(k).
func (ix *index) narrow(k Key) (min, max uint32) {
	min, max = ix.bucket(k)
	if max <= min || max-min <= ix.rng {
		return min, max
	}

	first := min / ix.rng
	last := (max - 1) / ix.rng
	if n := uint32(len(ix.fine)); last >= n {
		last = n - 1
	}
	part := ix.searchFine(k, first, last)

	lo := part * ix.rng
	hi := ix.items
	if part+1 < uint32(len(ix.fine)) {
		hi = (part + 1) * ix.rng
	}
	if lo < min {
		lo = min
	}
	if hi > max {
		hi = max
	}
	return lo, hi
}

// searchFine returns the rightmost bucket in [first, last] whose starting key
// is not greater than k, or first if there is none.
func (ix *index) searchFine(k Key, first, last uint32) uint32 {
	if first >= last {
		return first
	}
	n := int(last - first + 1)
	i := sort.Search(n, func(i int) bool {
		return k.Compare(ix.fine[first+uint32(i)]) < 0
	})
	if i == 0 {
		return first
	}
	return first + uint32(i) - 1
}
