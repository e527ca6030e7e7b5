package cache

import (
	"context"
	"time"
)

type Helper[T any] struct {
	Cache *Cache
}

func NewHelper[T any](cache *Cache) *Helper[T] {
	return &Helper[T]{Cache: cache}
}

// Handle reads key into out, or fills it with fn and stores the result.
// hit reports whether the value came from the cache.
func (c *Helper[T]) Handle(ctx context.Context, key string, out *T, fn func() (T, error), expiration time.Duration) (hit bool, err error) {
	if err = c.Cache.Get(ctx, key, out); err == nil {
		return true, nil
	}
	*out, err = fn()
	if err != nil {
		return false, err
	}
	return false, c.Cache.Set(ctx, key, out, expiration)
}
