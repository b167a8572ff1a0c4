package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const indexVersion = 1

// IndexFileName is the index kept at the root of the cache directory.
const IndexFileName = "index.json"

// Index records every downloaded kara file kept in the cache.
type Index struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// Entry describes one cached download. CachedPath is relative to the cache
// directory.
type Entry struct {
	Key         string    `json:"key"`
	KaraID      string    `json:"kara_id"`
	Filename    string    `json:"filename"`
	CachedPath  string    `json:"cached_path"`
	RetrievedAt time.Time `json:"retrieved_at"`
	SizeBytes   int64     `json:"size_bytes"`
}

// Key identifies a file of a kara.
func Key(karaID, filename string) string {
	return karaID + "/" + filepath.Base(filename)
}

// LoadIndex reads the index at path, returning an empty index when the file
// is missing.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newIndex(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	idx.normalize()
	return &idx, nil
}

// SaveIndex writes idx to path atomically, creating the directory if needed.
func SaveIndex(path string, idx *Index) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure index dir: %w", err)
	}
	if idx == nil {
		idx = newIndex()
	}
	idx.normalize()

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// Get returns the entry stored under key.
func (idx *Index) Get(key string) (Entry, bool) {
	if idx == nil || idx.Entries == nil {
		return Entry{}, false
	}
	entry, ok := idx.Entries[key]
	return entry, ok
}

// Set stores entry under its key.
func (idx *Index) Set(entry Entry) {
	if idx == nil {
		return
	}
	if idx.Entries == nil {
		idx.Entries = map[string]Entry{}
	}
	idx.Entries[entry.Key] = entry
}

// Delete removes the entry stored under key.
func (idx *Index) Delete(key string) {
	if idx == nil || idx.Entries == nil {
		return
	}
	delete(idx.Entries, key)
}

// Sorted returns the entries ordered by key.
func (idx *Index) Sorted() []Entry {
	if idx == nil {
		return nil
	}
	entries := make([]Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

func (idx *Index) normalize() {
	if idx.Version == 0 {
		idx.Version = indexVersion
	}
	if idx.Entries == nil {
		idx.Entries = map[string]Entry{}
	}
}

func newIndex() *Index {
	return &Index{
		Version: indexVersion,
		Entries: map[string]Entry{},
	}
}
