// Package cache implements the cache-aside layer shared by every
// external-facing call: a JSON value store over a pluggable key-value
// backend, deterministic key derivation, and a memoizing call wrapper with
// optional stale-on-error fallback.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vulnwatch/vulnwatch/internal/core"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

// Store serializes values to JSON and persists them through a
// core.CacheBackend. All components go through the Store; nothing reads or
// writes the backend directly.
type Store struct {
	backend core.CacheBackend
	log     *logger.Logger
}

func NewStore(backend core.CacheBackend, log *logger.Logger) *Store {
	return &Store{
		backend: backend,
		log:     log.WithComponent("cache"),
	}
}

// GetJSON reads key and unmarshals the stored value into dest. The boolean
// reports whether the key existed with a decodable value.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decode cached value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals value and stores it under key. A zero ttl stores the key
// without expiry. Serialization failures are reported, never dropped.
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	return s.backend.Set(ctx, key, string(raw), ttl)
}

// Delete removes a single key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	return s.backend.Delete(ctx, key)
}

// Keys lists keys in the rooted keyspace matching a glob pattern.
// Administrative use only.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.backend.Keys(ctx, Pattern(pattern))
}

// InvalidatePattern deletes every key matching a glob pattern and returns
// the number removed. Administrative use only.
func (s *Store) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	keys, err := s.backend.Keys(ctx, Pattern(pattern))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		ok, err := s.backend.Delete(ctx, key)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}

	s.log.Infow("Cache invalidated", "pattern", pattern, "removed", removed)
	return removed, nil
}

// Info reports backend state when the backend supports it.
func (s *Store) Info(ctx context.Context) (core.BackendInfo, error) {
	if reporter, ok := s.backend.(core.InfoReporter); ok {
		return reporter.Info(ctx)
	}
	return core.BackendInfo{Kind: "memory"}, nil
}

// Ping verifies backend connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) Close() error {
	return s.backend.Close()
}
