package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json"})
	require.NoError(t, err)
	return log
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewMemoryBackend(), testLogger(t))
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "vulnwatch:test:a", payload{Name: "log4shell", Count: 3}, time.Minute))

	var got payload
	hit, err := store.GetJSON(ctx, "vulnwatch:test:a", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Name: "log4shell", Count: 3}, got)
}

func TestStoreMiss(t *testing.T) {
	store := newTestStore(t)

	var got payload
	hit, err := store.GetJSON(context.Background(), "vulnwatch:test:absent", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStoreExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "vulnwatch:test:short", payload{Name: "x"}, 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	var got payload
	hit, err := store.GetJSON(ctx, "vulnwatch:test:short", &got)
	require.NoError(t, err)
	assert.False(t, hit, "expired keys must read as misses")
}

func TestStoreNoExpiryWithZeroTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "vulnwatch:test:forever", payload{Name: "stale"}, 0))
	time.Sleep(30 * time.Millisecond)

	var got payload
	hit, err := store.GetJSON(ctx, "vulnwatch:test:forever", &got)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "vulnwatch:test:gone", payload{}, time.Minute))

	removed, err := store.Delete(ctx, "vulnwatch:test:gone")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "vulnwatch:test:gone")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStoreInvalidatePattern(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Three namespaces; only recent_cves should be invalidated.
	require.NoError(t, store.SetJSON(ctx, DeriveKey(NamespaceRecentCVEs, []string{"7", "50"}, nil), payload{}, time.Minute))
	require.NoError(t, store.SetJSON(ctx, DeriveKey(NamespaceRecentCVEs, []string{"30", "100"}, nil), payload{}, time.Minute))
	require.NoError(t, store.SetJSON(ctx, DeriveKey(NamespaceEPSS, []string{"CVE-2021-44228"}, nil), payload{}, time.Minute))
	require.NoError(t, store.SetJSON(ctx, DeriveKey(NamespaceCVEDetail, []string{"CVE-2021-44228"}, nil), payload{}, time.Minute))

	removed, err := store.InvalidatePattern(ctx, NamespaceRecentCVEs+":*")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Subsequent reads in the invalidated namespace miss.
	var got payload
	hit, err := store.GetJSON(ctx, DeriveKey(NamespaceRecentCVEs, []string{"7", "50"}, nil), &got)
	require.NoError(t, err)
	assert.False(t, hit)

	// Other namespaces are untouched.
	hit, err = store.GetJSON(ctx, DeriveKey(NamespaceEPSS, []string{"CVE-2021-44228"}, nil), &got)
	require.NoError(t, err)
	assert.True(t, hit)
	hit, err = store.GetJSON(ctx, DeriveKey(NamespaceCVEDetail, []string{"CVE-2021-44228"}, nil), &got)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestStoreKeysScopedToRoot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, DeriveKey(NamespaceEPSS, []string{"CVE-2024-0001"}, nil), payload{}, time.Minute))

	keys, err := store.Keys(ctx, NamespaceEPSS+":*")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "vulnwatch:epss:CVE-2024-0001", keys[0])
}

func TestStoreInfoMemoryBackend(t *testing.T) {
	store := newTestStore(t)

	info, err := store.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory", info.Kind)
}
