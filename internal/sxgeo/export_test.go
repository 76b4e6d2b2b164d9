package sxgeo

// OctetRange exposes the coarse bucket of k.
func (db *DB) OctetRange(k Key) (uint32, uint32) { return db.index.bucket(k) }

// NarrowRange exposes the block range chosen by the two-level index.
func (db *DB) NarrowRange(k Key) (uint32, uint32) { return db.index.narrow(k) }

// ResolveRange runs the block search over an arbitrary range.
func (db *DB) ResolveRange(k Key, min, max uint32) (uint32, error) {
	return db.blocks.resolve(k, min, max)
}
