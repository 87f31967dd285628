package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
)

// RedisConfig holds the Redis backend settings.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	ScanCount int64 // keys fetched per SCAN page
}

// RedisStore implements Store on a single Redis connection pool.
type RedisStore struct {
	client    *redis.Client
	scanCount int64
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 512
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{client: client, scanCount: cfg.ScanCount}, nil
}

// Get fetches a record; redis.Nil maps to the not-found outcome.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Put writes the record and arms expiry in one pipeline round trip.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, expireAt time.Time) error {
	if expireAt.IsZero() {
		return s.client.Set(ctx, key, value, 0).Err()
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, value, 0)
	pipe.ExpireAt(ctx, key, expireAt)
	_, err := pipe.Exec(ctx)
	return err
}

// Scan walks the keyspace with SCAN MATCH, one cursor page at a time.
func (s *RedisStore) Scan(ctx context.Context, match string, fn func(key string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, s.scanCount).Result()
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := fn(key); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping verifies the connection is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
