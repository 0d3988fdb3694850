package diskcache

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FilePath returns the store file location for an application identifier:
// dir/<id as 16 hex digits>.cache.
func FilePath(dir string, appID uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%016X.cache", appID))
}

// Store is the in-memory blob table backed by one store file.
//
// Corruption is self-healing and silent: a store that cannot be read is
// deleted and the table starts empty, at most leaving a log message. No
// Store operation ever fails the caller over persistence problems.
type Store struct {
	path  string
	log   *slog.Logger
	table Table
}

// Open loads the store at path, healing it to empty on any read problem.
// A nil logger disables logging.
func Open(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{path: path, log: log, table: Table{}}
	s.load()
	return s
}

// Lookup returns the persisted binary for a stage-combination hash.
func (s *Store) Lookup(key uint64) (Entry, bool) {
	entry, ok := s.table[key]
	return entry, ok
}

// Insert records a freshly produced program binary for later flush. The
// data slice is retained; callers must not reuse it.
func (s *Store) Insert(key uint64, format uint32, data []byte) {
	s.table[key] = Entry{Format: format, Data: data}
}

// Discard drops the entire in-memory table. Called when the driver rejects
// a persisted binary: one bad blob means the whole store was produced under
// a driver or GPU this machine no longer has.
func (s *Store) Discard() {
	s.table = Table{}
}

// Len returns the number of entries currently held.
func (s *Store) Len() int {
	return len(s.table)
}

// Save writes the table back to the store file. The write is atomic
// (temp file + rename), so a failure mid-write leaves the previous store
// intact and never a truncated one; if even the atomic write fails, the
// stale store file is removed so the next run starts clean.
func (s *Store) Save() {
	var buf bytes.Buffer
	if err := Encode(&buf, s.table); err != nil {
		s.log.Warn("program binary store not saved", "path", s.path, "err", err)
		return
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(buf.Bytes())); err != nil {
		s.log.Warn("program binary store not saved", "path", s.path, "err", err)
		_ = os.Remove(s.path)
		return
	}
	s.log.Debug("program binary store saved", "path", s.path, "entries", len(s.table))
}

// load reads the store file into the table. Missing file: start empty.
// Unreadable file: delete it, start empty.
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("program binary store unreadable, removing", "path", s.path, "err", err)
			_ = os.Remove(s.path)
		}
		return
	}

	table, err := Decode(bytes.NewReader(data))
	if err != nil {
		s.log.Warn("program binary store invalid, removing", "path", s.path, "err", err)
		_ = os.Remove(s.path)
		return
	}

	s.table = table
	s.log.Debug("program binary store loaded", "path", s.path, "entries", len(table))
}
