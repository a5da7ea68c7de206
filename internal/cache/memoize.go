package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vulnwatch/vulnwatch/internal/core"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

// Namespaces used by the memoizing layer. The TTL table keys off these.
const (
	NamespaceCatalog     = "kev_catalog"
	NamespaceEPSS        = "epss"
	NamespaceDescription = "description"
	NamespaceGitHub      = "github_pocs"
	NamespaceForum       = "forum_posts"
	NamespaceStats       = "stats"
	NamespaceRecentCVEs  = "recent_cves"
	NamespaceCVEDetail   = "cve_detail"
)

const defaultTTL = time.Hour

var namespaceTTLs = map[string]time.Duration{
	NamespaceCatalog:     time.Hour,
	NamespaceEPSS:        time.Hour,
	NamespaceDescription: time.Hour,
	NamespaceGitHub:      30 * time.Minute,
	NamespaceForum:       30 * time.Minute,
	NamespaceStats:       24 * time.Hour,
	NamespaceRecentCVEs:  time.Hour,
	NamespaceCVEDetail:   time.Hour,
}

// TTLFor returns the cache lifetime for a namespace, falling back to one
// hour for unrecognized namespaces.
func TTLFor(namespace string) time.Duration {
	if ttl, ok := namespaceTTLs[namespace]; ok {
		return ttl
	}
	return defaultTTL
}

// staleSuffix marks the no-expiry shadow copy kept for stale-on-error
// fallback. The shadow is written alongside the TTL'd primary so a value
// survives its own expiry for degraded-mode reads.
const staleSuffix = ":stale"

// StaleKey returns the shadow key holding the last good value for key.
func StaleKey(key string) string {
	return key + staleSuffix
}

// Memoizer implements compute-or-fetch-cached over the Store. Producer
// failures are never cached; an unreachable backend downgrades to a plain
// producer call instead of failing the request.
type Memoizer struct {
	store *Store
	log   *logger.Logger
}

func NewMemoizer(store *Store, log *logger.Logger) *Memoizer {
	return &Memoizer{
		store: store,
		log:   log.WithComponent("memoize"),
	}
}

// Cached looks up the derived key and returns the cached value on a hit.
// On a miss it invokes produce and, on success, stores the result with the
// namespace TTL.
func Cached[T any](ctx context.Context, m *Memoizer, namespace string, args []string, kwargs map[string]string, produce func(ctx context.Context) (T, error)) (T, error) {
	key := DeriveKey(namespace, args, kwargs)

	var cached T
	hit, err := m.store.GetJSON(ctx, key, &cached)
	if err != nil {
		if !errors.Is(err, core.ErrCacheUnavailable) {
			return cached, err
		}
		m.log.Warnw("Cache unavailable, bypassing", "key", key, "error", err.Error())
		return produce(ctx)
	}
	if hit {
		return cached, nil
	}

	result, err := produce(ctx)
	if err != nil {
		return result, err
	}

	if err := m.store.SetJSON(ctx, key, result, TTLFor(namespace)); err != nil {
		// A failed write must not fail the call; the value is still fresh.
		m.log.Warnw("Cache write failed", "key", key, "error", err.Error())
	}
	return result, nil
}

// CachedStale behaves like Cached for periodic-snapshot data, with two
// differences: successful results are also written to a no-expiry shadow
// key, and a producer failure falls back to the shadow when one exists.
// Only when no prior value was ever stored does the failure propagate.
func CachedStale[T any](ctx context.Context, m *Memoizer, namespace string, args []string, kwargs map[string]string, produce func(ctx context.Context) (T, error)) (T, error) {
	key := DeriveKey(namespace, args, kwargs)

	var cached T
	hit, err := m.store.GetJSON(ctx, key, &cached)
	if err != nil && !errors.Is(err, core.ErrCacheUnavailable) {
		return cached, err
	}
	if hit {
		return cached, nil
	}

	result, err := produce(ctx)
	if err == nil {
		if werr := m.store.SetJSON(ctx, key, result, TTLFor(namespace)); werr != nil {
			m.log.Warnw("Cache write failed", "key", key, "error", werr.Error())
		} else if werr := m.store.SetJSON(ctx, key+staleSuffix, result, 0); werr != nil {
			m.log.Warnw("Stale shadow write failed", "key", key, "error", werr.Error())
		}
		return result, nil
	}

	var stale T
	staleHit, serr := m.store.GetJSON(ctx, key+staleSuffix, &stale)
	if serr == nil && staleHit {
		m.log.Warnw("Producer failed, serving stale value", "key", key, "error", err.Error())
		return stale, nil
	}

	return result, err
}

// Wrap builds a memoized variant of a single-argument producer. The
// returned function derives its key from the namespace and the argument.
func Wrap[T any](m *Memoizer, namespace string, produce func(ctx context.Context, arg string) (T, error)) func(ctx context.Context, arg string) (T, error) {
	return func(ctx context.Context, arg string) (T, error) {
		return Cached(ctx, m, namespace, []string{arg}, nil, func(ctx context.Context) (T, error) {
			return produce(ctx, arg)
		})
	}
}

// WrapStale is Wrap with stale-on-error fallback, for producers whose last
// good value is preferable to a hard failure.
func WrapStale[T any](m *Memoizer, namespace string, produce func(ctx context.Context, arg string) (T, error)) func(ctx context.Context, arg string) (T, error) {
	return func(ctx context.Context, arg string) (T, error) {
		return CachedStale(ctx, m, namespace, []string{arg}, nil, func(ctx context.Context) (T, error) {
			return produce(ctx, arg)
		})
	}
}
