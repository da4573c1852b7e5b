package fonts

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store keeps raw font bytes across export jobs. Font assets are immutable for
// a given cache key, so entries never need invalidation.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates a store without expiry and without a janitor goroutine.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.New(cache.NoExpiration, 0)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return v.([]byte), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	m.c.Set(key, data, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.c.ItemCount()
}

// RedisStore shares fonts between processes.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "carousel:font:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil // redis.Nil -> miss
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	return r.rdb.Set(ctx, r.prefix+key, data, r.ttl).Err()
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}

// TieredStore reads through a fast local store to a shared one and fills the
// local store on shared hits.
type TieredStore struct {
	Local  Store
	Shared Store
}

func (t *TieredStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, err := t.Local.Get(ctx, key); err == nil && ok {
		return data, true, nil
	}
	data, ok, err := t.Shared.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = t.Local.Set(ctx, key, data)
	return data, true, nil
}

func (t *TieredStore) Set(ctx context.Context, key string, data []byte) error {
	if err := t.Local.Set(ctx, key, data); err != nil {
		return err
	}
	return t.Shared.Set(ctx, key, data)
}
