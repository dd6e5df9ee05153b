package adapter

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// TTLCacheAdapter is an in-process DataAdapter backed by
// patrickmn/go-cache, replacing a bare map reference adapter with one
// that expires stale entries. Suited to local/dev use where a single
// process both fetches and serves.
type TTLCacheAdapter struct {
	cache *cache.Cache
}

// NewTTLCacheAdapter builds a TTLCacheAdapter with the given
// expiration and cleanup interval. A value written under a key is
// evicted after expiration elapses with no further write.
func NewTTLCacheAdapter(expiration, cleanupInterval time.Duration) *TTLCacheAdapter {
	return &TTLCacheAdapter{cache: cache.New(expiration, cleanupInterval)}
}

func (a *TTLCacheAdapter) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := a.cache.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (a *TTLCacheAdapter) Set(_ context.Context, key string, value string) error {
	a.cache.SetDefault(key, value)
	return nil
}

func (a *TTLCacheAdapter) Initialize(context.Context) error { return nil }
func (a *TTLCacheAdapter) Shutdown(context.Context) error   { return nil }

// SupportsPollingUpdatesFor is always false: this adapter is a
// write-through cache, not a live update source in its own right.
func (a *TTLCacheAdapter) SupportsPollingUpdatesFor(string) bool { return false }
