// Package diskcache persists compiled program binaries between runs.
//
// The store is a single per-application file holding driver-produced
// program binaries keyed by the 64-bit stage-combination hash the manager
// links programs under. It is read once when the manager starts and written
// once when it shuts down; a warm store turns program linking on the next
// run into a binary upload.
//
// The file format is deliberately dumb: a version tag, an entry count, then
// the entries. Anything unexpected — wrong version, short read, negative
// count — makes the loader discard the file entirely rather than trust a
// partial table.
package diskcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
)

// Version is the current store format version. Bump it whenever the layout
// changes; loaders delete stores written under any other version.
const Version uint32 = 2

// Codec errors.
var (
	// ErrVersionMismatch is returned when a store file was written under a
	// different format version.
	ErrVersionMismatch = errors.New("diskcache: store version mismatch")

	// ErrCorrupt is returned when a store file cannot be parsed.
	ErrCorrupt = errors.New("diskcache: store corrupt")
)

// Entry is one persisted program binary: the driver-specific binary format
// tag and the raw bytes.
type Entry struct {
	Format uint32
	Data   []byte
}

// Table maps stage-combination hashes to persisted program binaries.
type Table map[uint64]Entry

// Decode parses a store from r.
//
// Layout (little-endian):
//
//	u32 version
//	i32 entry count
//	per entry: u64 key, u32 format, u32 length, length raw bytes
//
// Any deviation — version skew, truncation, a negative count — returns an
// error; Decode never returns a partially filled table.
func Decode(r io.Reader) (Table, error) {
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: reading version: %w", ErrCorrupt, err)
	}
	if version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, version, Version)
	}

	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: reading entry count: %w", ErrCorrupt, err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative entry count %d", ErrCorrupt, count)
	}

	table := make(Table, count)
	for i := int32(0); i < count; i++ {
		var (
			key    uint64
			format uint32
			length uint32
		)
		if err := binary.Read(r, binary.LittleEndian, &key); err != nil {
			return nil, fmt.Errorf("%w: entry %d key: %w", ErrCorrupt, i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
			return nil, fmt.Errorf("%w: entry %d format: %w", ErrCorrupt, i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("%w: entry %d length: %w", ErrCorrupt, i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("%w: entry %d data: %w", ErrCorrupt, i, err)
		}
		table[key] = Entry{Format: format, Data: data}
	}

	return table, nil
}

// Encode writes the table to w in the format Decode reads. Entries are
// written in ascending key order so identical tables produce identical
// files.
func Encode(w io.Writer, table Table) error {
	if len(table) > math.MaxInt32 {
		return fmt.Errorf("diskcache: table too large: %d entries", len(table))
	}

	if err := binary.Write(w, binary.LittleEndian, Version); err != nil {
		return fmt.Errorf("writing version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(table))); err != nil {
		return fmt.Errorf("writing entry count: %w", err)
	}

	keys := make([]uint64, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		entry := table[key]
		if err := binary.Write(w, binary.LittleEndian, key); err != nil {
			return fmt.Errorf("writing entry key: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, entry.Format); err != nil {
			return fmt.Errorf("writing entry format: %w", err)
		}
		if uint64(len(entry.Data)) > math.MaxUint32 {
			return fmt.Errorf("diskcache: entry %016X too large: %d bytes", key, len(entry.Data))
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(entry.Data))); err != nil {
			return fmt.Errorf("writing entry length: %w", err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return fmt.Errorf("writing entry data: %w", err)
		}
	}

	return nil
}
