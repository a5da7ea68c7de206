package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/core"
)

// redisBackend implements core.CacheBackend over a Redis server. The
// connection is established lazily on first use; Connect is idempotent.
type redisBackend struct {
	cfg config.RedisConfig

	mu     sync.Mutex
	client *redis.Client
}

// NewRedisBackend creates a Redis-backed cache backend. No connection is
// made until the first call.
func NewRedisBackend(cfg config.RedisConfig) core.CacheBackend {
	return &redisBackend{cfg: cfg}
}

func (b *redisBackend) connect(ctx context.Context) (*redis.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         b.cfg.Addr,
		Password:     b.cfg.Password,
		DB:           b.cfg.DB,
		MaxRetries:   b.cfg.MaxRetries,
		DialTimeout:  b.cfg.DialTimeout,
		ReadTimeout:  b.cfg.ReadTimeout,
		WriteTimeout: b.cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrCacheUnavailable, err)
	}

	b.client = client
	return client, nil
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	client, err := b.connect(ctx)
	if err != nil {
		return "", false, err
	}

	val, err := client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: get %s: %v", core.ErrCacheUnavailable, key, err)
	}
	return val, true, nil
}

func (b *redisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	client, err := b.connect(ctx)
	if err != nil {
		return err
	}

	if err := client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", core.ErrCacheUnavailable, key, err)
	}
	return nil
}

func (b *redisBackend) Delete(ctx context.Context, key string) (bool, error) {
	client, err := b.connect(ctx)
	if err != nil {
		return false, err
	}

	n, err := client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", core.ErrCacheUnavailable, key, err)
	}
	return n > 0, nil
}

func (b *redisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	client, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: keys %s: %v", core.ErrCacheUnavailable, pattern, err)
	}
	return keys, nil
}

func (b *redisBackend) Ping(ctx context.Context) error {
	_, err := b.connect(ctx)
	return err
}

func (b *redisBackend) Info(ctx context.Context) (core.BackendInfo, error) {
	client, err := b.connect(ctx)
	if err != nil {
		return core.BackendInfo{}, err
	}

	raw, err := client.Info(ctx, "server", "memory", "clients", "stats").Result()
	if err != nil {
		return core.BackendInfo{}, fmt.Errorf("%w: info: %v", core.ErrCacheUnavailable, err)
	}

	fields := parseInfo(raw)
	return core.BackendInfo{
		Kind:             "redis",
		ServerVersion:    fields["redis_version"],
		UsedMemory:       fields["used_memory_human"],
		ConnectedClients: fields["connected_clients"],
		KeyspaceHits:     fields["keyspace_hits"],
		KeyspaceMisses:   fields["keyspace_misses"],
	}, nil
}

func (b *redisBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

func parseInfo(raw string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			fields[k] = v
		}
	}
	return fields
}
