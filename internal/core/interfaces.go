package core

import (
	"context"
	"time"
)

// CacheBackend is the raw key-value contract the cache store is built on.
// The production implementation talks to Redis; tests use an in-memory map.
type CacheBackend interface {
	// Get returns the raw value for key. The second return reports whether
	// the key existed; a missing key is not an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set creates or overwrites key with value. A zero ttl stores the key
	// without expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Keys lists keys matching a glob-style pattern. Administrative use
	// only, never on the request-serving hot path.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	Close() error
}

// BackendInfo describes the state of a cache backend for the admin surface.
type BackendInfo struct {
	Kind             string `json:"kind"`
	ServerVersion    string `json:"server_version,omitempty"`
	UsedMemory       string `json:"used_memory,omitempty"`
	ConnectedClients string `json:"connected_clients,omitempty"`
	KeyspaceHits     string `json:"keyspace_hits,omitempty"`
	KeyspaceMisses   string `json:"keyspace_misses,omitempty"`
}

// InfoReporter is implemented by backends that can report server state.
type InfoReporter interface {
	Info(ctx context.Context) (BackendInfo, error)
}
