package shadercache

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
)

// Configuration keys and stage combinations hash with FNV-1a. Keys are fed
// field by field in a fixed order, so the result never depends on struct
// memory layout or host padding.

// hashString computes an FNV-1a hash of a string (generated source text).
func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// hashWriteUint32 writes a uint32 to the hash.
func hashWriteUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteUint64 writes a uint64 to the hash.
func hashWriteUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

// hashWriteBool writes a bool to the hash.
func hashWriteBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}

// programHash combines the three active stage content hashes into the key
// the linked-program cache and the binary store share.
func programHash(vs, gs, fs uint64) uint64 {
	h := fnv.New64a()
	hashWriteUint64(h, vs)
	hashWriteUint64(h, gs)
	hashWriteUint64(h, fs)
	return h.Sum64()
}
