// Package cache provides the key/value stores behind session persistence.
//
// Two drivers share the Store interface: Redis (for a portal shared between
// several processes on one machine or a kiosk fleet) and an in-process map.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a JSON value store with per-key TTL. A zero TTL means no expiry.
type Store interface {
	// Get unmarshals the value under key into dest. ok is false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (ok bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ─── Redis ───────────────────────────────────────────────────────────────────

// RedisStore stores values as JSON strings in Redis.
type RedisStore struct {
	rdb *redis.Client
}

// Connect initialises the Redis client and verifies the connection with a ping.
func Connect(ctx context.Context, addr, password string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: redis get %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.rdb.Del(ctx, keys...).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// ─── Memory ──────────────────────────────────────────────────────────────────

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded map. Values are stored JSON-encoded so Get
// behaves exactly like the Redis driver.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !item.expiresAt.IsZero() && s.now().After(item.expiresAt) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	item := memoryItem{data: data}
	if ttl > 0 {
		item.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}
