package embcache

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Store persists cache entries across restarts.
type Store interface {
	// Load returns every readable entry. Implementations skip individually
	// corrupt records rather than failing the whole load.
	Load() ([]Entry, error)
	// Save replaces the persisted set with the given entries atomically
	// enough that a concurrent reader never observes a torn write.
	Save(entries []Entry) error
	Close() error
}

// FileStore persists entries as newline-delimited JSON, one record per line.
// This is the default, diff-friendly format.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a FileStore at path. The parent directory is created
// on the first Save.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Load reads the NDJSON file. Lines that fail to parse, or records without
// text or an embedding array, are skipped with a warning. A missing file is
// an empty cache, not an error.
func (s *FileStore) Load() ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	// Embeddings of a few thousand dimensions serialize well past the
	// default 64KiB line limit.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			skipped++
			s.logger.Warn("skipping corrupt cache line", "line", lineNo, "error", err)
			continue
		}
		if entry.Text == "" || len(entry.Embedding) == 0 {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("read cache file: %w", err)
	}
	if skipped > 0 {
		s.logger.Warn("discarded invalid cache records", "skipped", skipped, "kept", len(entries))
	}
	return entries, nil
}

// Save writes all entries to a temp file and renames it over the target so a
// reader never sees a half-written cache.
func (s *FileStore) Save(entries []Entry) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			tmp.Close()
			return fmt.Errorf("encode cache entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is only held open during Load and Save.
func (s *FileStore) Close() error { return nil }
