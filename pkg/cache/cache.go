// Package cache stores compiled bytecode on disk, keyed by a hash of the
// source text, so unchanged scripts skip recompilation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/slither/pkg/bytecode"
)

var log = commonlog.GetLogger("slither.cache")

// formatVersion is the first byte of every cache entry. Entries written
// by an incompatible build are treated as misses.
const formatVersion = 1

// Cache is a directory of serialized code units.
type Cache struct {
	dir string
}

// Open creates the cache directory if needed and returns a handle to it.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Key derives the cache key for a source text.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".sbc")
}

// Load returns the cached code unit for the source, or ok=false on a
// miss. Unreadable or corrupt entries are misses, never faults: the
// caller falls back to compiling.
func (c *Cache) Load(source string) (*bytecode.CodeUnit, bool) {
	path := c.entryPath(Key(source))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if len(data) < 1 || data[0] != formatVersion {
		log.Noticef("discarding cache entry with unknown version: %s", path)
		return nil, false
	}
	unit, err := unmarshalUnit(data[1:])
	if err != nil {
		log.Noticef("discarding corrupt cache entry %s: %s", path, err.Error())
		return nil, false
	}
	return unit, true
}

// Store writes the compiled unit for the source. The entry is written to
// a temporary file and renamed so readers never observe a partial entry.
func (c *Cache) Store(source string, unit *bytecode.CodeUnit) error {
	data, err := marshalUnit(unit)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	path := c.entryPath(Key(source))
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache entry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write([]byte{formatVersion}); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}
