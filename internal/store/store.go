package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Store is the abstract document store used by the processors.
type Store interface {
	// Get fetches a record. found=false with a nil error means the key does
	// not exist (or has expired); callers treat that as a benign outcome.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put overwrites the whole record. A non-zero expireAt arms store-level
	// expiry at that instant; a zero expireAt persists the record.
	Put(ctx context.Context, key string, value []byte, expireAt time.Time) error

	// Scan streams every key matching the glob pattern to fn, using
	// cursor-style continuation so arbitrarily large key sets stay bounded
	// in memory. A non-nil error from fn aborts the scan.
	Scan(ctx context.Context, match string, fn func(key string) error) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// Factory creates an independent store connection. The dispatcher calls it
// once per worker so no connection is shared across workers.
type Factory func(ctx context.Context) (Store, error)

// Key layout. Order records are grouped under their (typeID, regionID) book
// so one scan enumerates exactly one book.

// OrderKey returns the key of a single order record.
func OrderKey(typeID, regionID, orderID int64) string {
	return fmt.Sprintf("ord:%d:%d:%d", typeID, regionID, orderID)
}

// OrderMatch returns the scan pattern covering every order in one book.
func OrderMatch(typeID, regionID int64) string {
	return fmt.Sprintf("ord:%d:%d:*", typeID, regionID)
}

// HistoryKey returns the key of a (typeID, regionID) history aggregate.
func HistoryKey(typeID, regionID int64) string {
	return fmt.Sprintf("hist:%d:%d", typeID, regionID)
}

// OrderIDFromKey extracts the orderID from an order key.
func OrderIDFromKey(key string) (int64, error) {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return 0, fmt.Errorf("malformed order key %q", key)
	}
	id, err := strconv.ParseInt(key[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed order key %q: %w", key, err)
	}
	return id, nil
}
