// Package cache persists validation results keyed by a normalized-query
// fingerprint, with time-to-live expiry, access counters, and bulk
// export/clear operations. One store backs both the browser-path lookups
// and the cache maintenance commands.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// DefaultTTL keeps entries for one week.
const DefaultTTL = 7 * 24 * time.Hour

// Entry is one persisted cache record.
type Entry struct {
	Query       string          `json:"query"`
	Result      json.RawMessage `json:"result"`
	CreatedAt   time.Time       `json:"created_at"`
	AccessedAt  time.Time       `json:"accessed_at"`
	AccessCount int             `json:"access_count"`
}

// expired reports whether the entry's age exceeds the TTL.
func (e Entry) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.CreatedAt) > ttl
}

// Store is a badger-backed cache shared across concurrent validation
// workers. Operations are serialized: one read-check-expire or write-upsert
// at a time.
type Store struct {
	mu  sync.Mutex
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) a store at the given directory. A non-positive
// TTL falls back to DefaultTTL.
func Open(dir string, ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache store %s: %w", dir, err)
	}

	return &Store{db: db, ttl: ttl}, nil
}

// Close releases the underlying store.
func (s *Store) Close() error {
	return s.db.Close()
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Fingerprint derives the stable cache key: the query is trimmed and
// lowercased, then hashed. Lookups are therefore case- and
// whitespace-insensitive but sensitive to punctuation and word order.
func Fingerprint(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get looks up a query. An entry older than the TTL is deleted as a side
// effect and reported as a miss. A hit bumps the access counter and
// last-access time.
func (s *Store) Get(query string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := []byte(Fingerprint(query))
	now := time.Now()

	var result json.RawMessage

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		var entry Entry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return err
		}

		if entry.expired(s.ttl, now) {
			_ = txn.Delete(key)
			return badger.ErrKeyNotFound
		}

		entry.AccessCount++
		entry.AccessedAt = now

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}

		result = entry.Result
		return nil
	})
	if err != nil {
		return nil, false
	}

	return result, true
}

// GetInto unmarshals a cached result into v, reporting whether a fresh
// entry existed.
func (s *Store) GetInto(query string, v any) bool {
	raw, ok := s.Get(query)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Put upserts a result for the query. A second put for the same fingerprint
// overwrites the payload and resets the access counter to 1.
func (s *Store) Put(query string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal cache payload: %w", err)
	}

	now := time.Now()
	entry := Entry{
		Query:       query,
		Result:      data,
		CreatedAt:   now,
		AccessedAt:  now,
		AccessCount: 1,
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Fingerprint(query)), value)
	})
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	return nil
}

// PurgeExpired removes all entries older than the TTL and returns how many
// were deleted.
func (s *Store) PurgeExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var stale [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var entry Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}

			if entry.expired(s.ttl, now) {
				stale = append(stale, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan cache: %w", err)
	}

	for _, key := range stale {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, fmt.Errorf("delete expired entry: %w", err)
		}
	}

	return len(stale), nil
}

// Clear removes every entry from the store.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// entries returns all live entries. Callers must hold s.mu.
func (s *Store) entries() ([]Entry, error) {
	var out []Entry

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry Entry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			}); err != nil {
				continue
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan cache: %w", err)
	}

	return out, nil
}
