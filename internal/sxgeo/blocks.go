package sxgeo

import (
	"bytes"
	"sort"
)

// blockTable is the sorted array of fixed-width blocks. Each block starts
// with the low three bytes of an IP bound and ends with an idLen-byte payload.
type blockTable struct {
	sec   section
	count uint32
	idLen int64
	size  int64 // bytes per block
}

// resolve returns the payload for k within blocks [min, max), or 0 when the
// range is empty. The payload is taken from the block preceding the first
// block whose bound is strictly greater than k's low three bytes.
func (t blockTable) resolve(k Key, min, max uint32) (uint32, error) {
	if max > t.count {
		max = t.count
	}
	if max <= min {
		return 0, nil
	}

	// One extra block in front so a key below the first bound can fall back
	// to its predecessor.
	start := min
	if start > 0 {
		start--
	}
	buf, err := t.sec.read(int64(start)*t.size, int64(max-start)*t.size)
	if err != nil {
		return 0, err
	}

	base := int(min - start)
	target := k[1:]
	j := sort.Search(int(max-min), func(i int) bool {
		off := int64(base+i) * t.size
		return bytes.Compare(buf[off:off+keyLen], target) > 0
	})
	if base+j == 0 {
		return 0, nil
	}
	end := int64(base+j) * t.size
	return beUint(buf[end-t.idLen : end]), nil
}

// payloadAfter returns the payload ending right before block i. A coarse
// bucket holding a single block maps every key of its octet to that block.
func (t blockTable) payloadAfter(i uint32) (uint32, error) {
	end := int64(i) * t.size
	b, err := t.sec.read(end-t.idLen, t.idLen)
	if err != nil {
		return 0, err
	}
	return beUint(b), nil
}

func beUint(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}
