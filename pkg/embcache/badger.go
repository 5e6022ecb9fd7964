package embcache

import (
	"encoding/json"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore persists cache entries in a Badger database, one key per text
// hash. Suited to corpora too large for a single NDJSON file.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerStore opens (or creates) a Badger database at dir.
func NewBadgerStore(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache at %s: %w", dir, err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Load iterates every record; undecodable values are skipped with a warning.
func (s *BadgerStore) Load() ([]Entry, error) {
	var entries []Entry
	skipped := 0

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				skipped++
				continue
			}
			var entry Entry
			if err := json.Unmarshal(val, &entry); err != nil {
				skipped++
				continue
			}
			if entry.Text == "" || len(entry.Embedding) == 0 {
				skipped++
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return entries, fmt.Errorf("scan badger cache: %w", err)
	}
	if skipped > 0 {
		s.logger.Warn("discarded invalid badger cache records", "skipped", skipped, "kept", len(entries))
	}
	return entries, nil
}

// Save drops the persisted set and writes the given entries in one batch.
func (s *BadgerStore) Save(entries []Entry) error {
	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear badger cache: %w", err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range entries {
		e := &entries[i]
		key := e.TextHash
		if key == "" {
			key = HashText(e.Text)
		}
		val, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		if err := wb.Set([]byte(key), val); err != nil {
			return fmt.Errorf("write cache entry: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush badger cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
