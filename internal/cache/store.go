// Package cache keeps downloaded kara.moe media between runs so converting
// the same kara twice does not fetch its videos again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Downloader fetches filename into destDir and returns the written path.
type Downloader func(ctx context.Context, filename, destDir string) (string, error)

// Store is a download cache rooted at Dir. Files live under Dir/<kara id>/.
type Store struct {
	Dir    string
	Logger Logger

	mu  sync.Mutex
	now func() time.Time
}

// New returns a store rooted at dir.
func New(dir string, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{Dir: dir, Logger: logger, now: time.Now}
}

func (s *Store) logf(format string, v ...any) {
	if s.Logger == nil {
		return
	}
	s.Logger.Printf(format, v...)
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Store) indexPath() string {
	return filepath.Join(s.Dir, IndexFileName)
}

// Fetch returns the cached copy of filename for karaID, calling download on a
// miss. An entry whose file vanished or changed size counts as a miss. The
// flag reports a hit.
func (s *Store) Fetch(ctx context.Context, karaID, filename string, download Downloader) (string, bool, error) {
	if karaID == "" || filename == "" {
		return "", false, errors.New("cache: kara id and file name are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := LoadIndex(s.indexPath())
	if err != nil {
		return "", false, err
	}

	key := Key(karaID, filename)
	if entry, ok := idx.Get(key); ok {
		path := filepath.Join(s.Dir, entry.CachedPath)
		info, statErr := os.Stat(path)
		if statErr == nil && info.Size() == entry.SizeBytes {
			s.logf("cache: hit %s", key)
			return path, true, nil
		}
		s.logf("cache: stale entry %s, downloading again", key)
		idx.Delete(key)
	}

	path, err := download(ctx, filename, filepath.Join(s.Dir, karaID))
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", false, fmt.Errorf("stat download: %w", err)
	}
	rel, err := filepath.Rel(s.Dir, path)
	if err != nil {
		return "", false, fmt.Errorf("relativize %s: %w", path, err)
	}
	idx.Set(Entry{
		Key:         key,
		KaraID:      karaID,
		Filename:    filepath.Base(filename),
		CachedPath:  filepath.ToSlash(rel),
		RetrievedAt: s.clock().UTC(),
		SizeBytes:   info.Size(),
	})
	if err := SaveIndex(s.indexPath(), idx); err != nil {
		return "", false, err
	}
	s.logf("cache: stored %s (%d bytes)", key, info.Size())
	return path, false, nil
}

// Entries lists the cached files ordered by key.
func (s *Store) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := LoadIndex(s.indexPath())
	if err != nil {
		return nil, err
	}
	return idx.Sorted(), nil
}

// CleanResult summarizes a Clean call.
type CleanResult struct {
	Removed int   `json:"removed"`
	Bytes   int64 `json:"bytes"`
}

// Clean deletes entries retrieved more than olderThan ago, or every entry
// when olderThan is zero. Entries whose file is already gone are dropped too.
func (s *Store) Clean(olderThan time.Duration) (CleanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := LoadIndex(s.indexPath())
	if err != nil {
		return CleanResult{}, err
	}

	var result CleanResult
	cutoff := s.clock().Add(-olderThan)
	for _, entry := range idx.Sorted() {
		path := filepath.Join(s.Dir, filepath.FromSlash(entry.CachedPath))
		_, statErr := os.Stat(path)
		missing := errors.Is(statErr, os.ErrNotExist)
		if !missing && olderThan > 0 && entry.RetrievedAt.After(cutoff) {
			continue
		}
		if !missing {
			if err := os.Remove(path); err != nil {
				return result, fmt.Errorf("remove %s: %w", path, err)
			}
			result.Bytes += entry.SizeBytes
		}
		idx.Delete(entry.Key)
		result.Removed++
		// the kara directory goes once its last file is removed
		_ = os.Remove(filepath.Dir(path))
	}

	if err := SaveIndex(s.indexPath(), idx); err != nil {
		return result, err
	}
	return result, nil
}
