package cmd

import (
	"github.com/vulnwatch/vulnwatch/internal/advisory"
	"github.com/vulnwatch/vulnwatch/internal/cache"
	"github.com/vulnwatch/vulnwatch/internal/catalog"
	"github.com/vulnwatch/vulnwatch/internal/enrich"
	"github.com/vulnwatch/vulnwatch/internal/epss"
	"github.com/vulnwatch/vulnwatch/internal/evidence"
	"github.com/vulnwatch/vulnwatch/internal/nvd"
)

// services holds the fully wired application graph. Every command that
// touches upstream sources or the cache goes through this.
type services struct {
	store    *cache.Store
	memoizer *cache.Memoizer
	catalog  *catalog.Manager
	advisory *advisory.Service
}

func buildServices() *services {
	backend := cache.NewRedisBackend(cfg.Redis)
	store := cache.NewStore(backend, log)
	memoizer := cache.NewMemoizer(store, log)

	cat := catalog.NewManager(cfg.Sources.Catalog, store, log)
	epssClient := epss.NewClient(cfg.Sources.EPSS, memoizer, log)

	aggregator := evidence.NewAggregator(
		evidence.NewExploitDBProber(cfg.Sources.ExploitDB, log),
		evidence.NewGitHubClient(cfg.Sources.GitHub, memoizer, log),
		evidence.NewForumClient(cfg.Sources.Forum, memoizer, log),
		cfg.RateLimit,
		log,
	)

	enricher := enrich.NewEnricher(cat, epssClient, aggregator, cfg.Worker.Count, log)
	nvdClient := nvd.NewClient(cfg.Sources.NVD, log)

	return &services{
		store:    store,
		memoizer: memoizer,
		catalog:  cat,
		advisory: advisory.NewService(nvdClient, enricher, cat, memoizer, log),
	}
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		log.Warnw("Failed to close cache backend", "error", err)
	}
}
