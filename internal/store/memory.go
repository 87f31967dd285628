package store

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. It backs local development
// runs (store.backend: memory) and serves as the test double for the
// processors. Expiry is checked lazily on read and scan.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	value    []byte
	expireAt time.Time // zero = persist
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// SetClock overrides the expiry clock. Used by tests to step time across a
// record's expiry instant.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) expired(rec memoryRecord) bool {
	return !rec.expireAt.IsZero() && !rec.expireAt.After(s.now())
}

// Get fetches a record, reporting expired records as not found.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()

	if !ok || s.expired(rec) {
		return nil, false, nil
	}

	out := make([]byte, len(rec.value))
	copy(out, rec.value)
	return out, true, nil
}

// Put overwrites a record and its expiry instant.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, expireAt time.Time) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.records[key] = memoryRecord{value: stored, expireAt: expireAt}
	s.mu.Unlock()
	return nil
}

// Scan streams matching, non-expired keys to fn.
func (s *MemoryStore) Scan(_ context.Context, match string, fn func(key string) error) error {
	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for key, rec := range s.records {
		if s.expired(rec) {
			continue
		}
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	s.mu.RUnlock()

	for _, key := range keys {
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

// ExpireAt reports the expiry instant of a key, if present.
func (s *MemoryStore) ExpireAt(key string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok || s.expired(rec) {
		return time.Time{}, false
	}
	return rec.expireAt, true
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if !s.expired(rec) {
			n++
		}
	}
	return n
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
