package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("cache: miss")

// Backend is the shared store behind the local memory layer.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Close() error
}

type LocalEntry struct {
	Expires time.Time
	Data    []byte
}

type Cache struct {
	backend  Backend
	mu       sync.RWMutex
	memCache map[string]LocalEntry
	localTTL time.Duration
	now      func() time.Time
}

type redisBackend struct {
	client *redis.Client
}

func (r *redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

func (r *redisBackend) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *redisBackend) Close() error {
	return r.client.Close()
}

func NewRedisCache(addr, password string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return New(&redisBackend{client: rdb})
}

func New(backend Backend) *Cache {
	return &Cache{
		backend:  backend,
		memCache: make(map[string]LocalEntry),
		localTTL: time.Minute,
		now:      time.Now,
	}
}

// Get decodes the cached value for key into out, trying memory before the backend.
func (c *Cache) Get(ctx context.Context, key string, out any) error {
	c.mu.RLock()
	local, found := c.memCache[key]
	c.mu.RUnlock()
	if found {
		if local.Expires.After(c.now()) {
			return sonic.Unmarshal(local.Data, out)
		}
		c.mu.Lock()
		delete(c.memCache, key)
		c.mu.Unlock()
	}
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	if err = sonic.Unmarshal(data, out); err != nil {
		return err
	}
	c.storeLocal(key, data, c.localTTL)
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return err
	}
	c.storeLocal(key, data, min(expiration, c.localTTL))
	return c.backend.Set(ctx, key, data, expiration)
}

func (c *Cache) storeLocal(key string, data []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memCache[key] = LocalEntry{Expires: c.now().Add(ttl), Data: data}
}

func (c *Cache) Close() error {
	return c.backend.Close()
}
