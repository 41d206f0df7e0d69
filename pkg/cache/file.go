package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// FileStore persists entries as file pairs in a cache directory:
// <fingerprint>.meta.json for metadata and <fingerprint>.<format> for the
// body. An entry exists iff both files exist; writes go through a temp file
// and rename, so readers never see a half-written artifact.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates (if needed) the cache directory and returns a store
// over it.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the cache directory path.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) metaPath(fp string) string {
	return filepath.Join(s.dir, fp+".meta.json")
}

// bodyPath finds the body file for a fingerprint. The extension depends on
// the response format recorded in the metadata.
func (s *FileStore) bodyPath(fp, format string) string {
	if format == "" {
		format = "json"
	}
	return filepath.Join(s.dir, fp+"."+format)
}

// Has reports whether both artifact files exist for the fingerprint.
func (s *FileStore) Has(ctx context.Context, fp string) bool {
	meta, err := os.ReadFile(s.metaPath(fp))
	if err != nil {
		return false
	}
	var entry Entry
	if err := json.Unmarshal(meta, &entry); err != nil {
		return false
	}
	_, err = os.Stat(s.bodyPath(fp, entry.Format))
	return err == nil
}

// Get returns the stored entry. Unreadable or incomplete artifacts count as
// misses: the stale files are removed and ErrCacheMiss is returned so the
// caller re-dispatches.
func (s *FileStore) Get(ctx context.Context, fp string) (*Entry, error) {
	meta, err := os.ReadFile(s.metaPath(fp))
	if err != nil {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	var entry Entry
	if err := json.Unmarshal(meta, &entry); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("Corrupt cache metadata, treating as miss")
		s.discard(fp, &entry)
		CacheErrors.WithLabelValues("get").Inc()
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	body, err := os.ReadFile(s.bodyPath(fp, entry.Format))
	if err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("Cache body missing, treating as miss")
		s.discard(fp, &entry)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	entry.Body = body
	CacheHits.WithLabelValues("file").Inc()
	return &entry, nil
}

// Put stores an entry, replacing any previous artifact wholesale. The body
// lands first, the metadata last, each via temp file + rename; readers
// require both files, so a crash mid-write leaves a miss, never a torn
// entry.
func (s *FileStore) Put(ctx context.Context, fp string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	if err := s.writeAtomic(s.bodyPath(fp, entry.Format), entry.Body); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("write cache body: %w", err)
	}

	meta, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache metadata: %w", err)
	}
	if err := s.writeAtomic(s.metaPath(fp), meta); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("write cache metadata: %w", err)
	}

	CacheBytesWritten.WithLabelValues("file").Add(float64(len(entry.Body) + len(meta)))
	return nil
}

// Clear deletes the cache directory contents and recreates the directory.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.RemoveAll(s.dir); err != nil {
		CacheErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("clear cache dir: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("recreate cache dir: %w", err)
	}
	s.logger.Info().Str("dir", s.dir).Msg("Cache cleared")
	return nil
}

func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// discard removes whatever artifact files remain for a fingerprint.
func (s *FileStore) discard(fp string, entry *Entry) {
	_ = os.Remove(s.metaPath(fp))
	if entry != nil && entry.Format != "" {
		_ = os.Remove(s.bodyPath(fp, entry.Format))
		return
	}
	// format unknown, sweep all known extensions
	matches, _ := filepath.Glob(filepath.Join(s.dir, fp+".*"))
	for _, m := range matches {
		if strings.HasSuffix(m, ".meta.json") {
			continue
		}
		_ = os.Remove(m)
	}
}
