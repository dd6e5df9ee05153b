package adapter

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// RedisAdapter is a shared/remote DataAdapter, suited to multi-process
// deployments that want one process' network sync to seed every other
// process' cache immediately, instead of each process polling the
// network independently.
type RedisAdapter struct {
	client *redis.Client
	prefix string
}

// NewRedisAdapter wraps an already-configured *redis.Client. prefix is
// prepended to every key so multiple SDK instances (e.g. per
// environment) can share one Redis without colliding.
func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	return &RedisAdapter{client: client, prefix: prefix}
}

func (a *RedisAdapter) key(k string) string { return a.prefix + k }

func (a *RedisAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := a.client.Get(ctx, a.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (a *RedisAdapter) Set(ctx context.Context, key string, value string) error {
	return a.client.Set(ctx, a.key(key), value, 0).Err()
}

func (a *RedisAdapter) Initialize(ctx context.Context) error {
	return a.client.Ping(ctx).Err()
}

func (a *RedisAdapter) Shutdown(context.Context) error {
	return a.client.Close()
}

// SupportsPollingUpdatesFor is true for every key: Redis is meant to
// be the shared source of truth another process' network sync already
// wrote to, so polling it instead of the network avoids redundant
// fetches.
func (a *RedisAdapter) SupportsPollingUpdatesFor(string) bool { return true }
