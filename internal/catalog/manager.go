package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/core"
	"github.com/vulnwatch/vulnwatch/internal/httpclient"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

// Manager owns the catalog snapshot lifecycle: authoritative-feed refresh,
// cache-aside storage, stale fallback in degraded mode.
type Manager struct {
	store   *cache.Store
	http    *http.Client
	feedURL string
	log     *logger.Logger
}

func NewManager(cfg config.CatalogConfig, store *cache.Store, log *logger.Logger) *Manager {
	return &Manager{
		store:   store,
		http:    httpclient.NewWithTimeout(cfg.Timeout),
		feedURL: cfg.FeedURL,
		log:     log.WithComponent("catalog"),
	}
}

func snapshotKey() string {
	return cache.DeriveKey(cache.NamespaceCatalog, nil, nil)
}

// Fetch returns the current catalog snapshot. Unless forced, a cached
// snapshot is returned as-is. A refresh that fails falls back to any prior
// snapshot, stale included, with a degraded-mode warning; with no prior
// snapshot the failure is surfaced.
func (m *Manager) Fetch(ctx context.Context, force bool) (*Snapshot, error) {
	key := snapshotKey()

	if !force {
		var cached Snapshot
		hit, err := m.store.GetJSON(ctx, key, &cached)
		if err != nil {
			m.log.Warnw("Catalog cache read failed", "error", err.Error())
		} else if hit {
			return &cached, nil
		}
	}

	snapshot, err := m.refresh(ctx)
	if err == nil {
		if werr := m.store.SetJSON(ctx, key, snapshot, cache.TTLFor(cache.NamespaceCatalog)); werr != nil {
			m.log.Warnw("Catalog cache write failed", "error", werr.Error())
		} else if werr := m.store.SetJSON(ctx, cache.StaleKey(key), snapshot, 0); werr != nil {
			m.log.Warnw("Catalog stale shadow write failed", "error", werr.Error())
		}
		m.log.Infow("Catalog refreshed", "entries", len(snapshot.Vulnerabilities), "version", snapshot.CatalogVersion)
		return snapshot, nil
	}

	// Degraded mode: serve the last good snapshot if one ever existed.
	for _, fallbackKey := range []string{key, cache.StaleKey(key)} {
		var stale Snapshot
		hit, serr := m.store.GetJSON(ctx, fallbackKey, &stale)
		if serr == nil && hit {
			m.log.Warnw("Catalog refresh failed, serving cached snapshot",
				"error", err.Error(), "entries", len(stale.Vulnerabilities))
			return &stale, nil
		}
	}

	return nil, fmt.Errorf("catalog refresh with no cached fallback: %w", err)
}

// Preload forces a refresh at process start so the first request never
// pays a cold fetch. Failures degrade to cache-if-present or an empty
// snapshot; startup is never blocked on upstream availability.
func (m *Manager) Preload(ctx context.Context) *Snapshot {
	snapshot, err := m.Fetch(ctx, true)
	if err != nil {
		m.log.Warnw("Catalog preload failed, starting with empty snapshot", "error", err.Error())
		return &Snapshot{}
	}
	return snapshot
}

func (m *Manager) refresh(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog feed: %v", core.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog feed returned %d", core.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode catalog feed: %v", core.ErrUpstreamUnavailable, err)
	}
	snapshot.Count = len(snapshot.Vulnerabilities)

	return &snapshot, nil
}
