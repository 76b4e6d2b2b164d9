package sxgeo

import "time"

var (
	charsetNames = []string{"utf-8", "latin1", "cp1251"}
	typeNames    = []string{
		"n/a",
		"SxGeo Country",
		"SxGeo City RU",
		"SxGeo City EN",
		"SxGeo City",
		"SxGeo City Max RU",
		"SxGeo City Max EN",
		"SxGeo City Max",
	}
)

// BlobInfo describes one record blob.
type BlobInfo struct {
	MaxLength int `json:"max_length"`
	TotalSize int `json:"total_size"`
}

// About is a human-readable summary of a database header.
type About struct {
	Created           string   `json:"created"`
	Timestamp         uint32   `json:"timestamp"`
	Charset           string   `json:"charset"`
	Type              string   `json:"type"`
	ByteIndex         int      `json:"byte_index"`
	MainIndex         int      `json:"main_index"`
	BlocksInIndexItem int      `json:"blocks_in_index_item"`
	IPBlocks          int      `json:"ip_blocks"`
	BlockSize         int      `json:"block_size"`
	City              BlobInfo `json:"city"`
	Region            BlobInfo `json:"region"`
	Country           BlobInfo `json:"country"`
}

// About summarises the database header.
func (db *DB) About() About {
	h := db.header
	return About{
		Created:           time.Unix(int64(h.Timestamp), 0).UTC().Format("2006.01.02"),
		Timestamp:         h.Timestamp,
		Charset:           lookupName(charsetNames, int(h.Charset)),
		Type:              lookupName(typeNames, int(h.Type)),
		ByteIndex:         int(h.ByteIndexLen),
		MainIndex:         int(h.MainIndexLen),
		BlocksInIndexItem: int(h.Range),
		IPBlocks:          int(h.ItemCount),
		BlockSize:         int(h.blockLen()),
		City:              BlobInfo{MaxLength: int(h.MaxCityRecLen), TotalSize: int(h.CityBlobSize)},
		Region:            BlobInfo{MaxLength: int(h.MaxRegionRecLen), TotalSize: int(h.RegionBlobSize)},
		Country:           BlobInfo{MaxLength: int(h.MaxCountryRecLen), TotalSize: int(h.CountryBlobSize)},
	}
}

func lookupName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}
