package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Logger.OutputPaths)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "https://services.nvd.nist.gov/rest/json/cves/2.0", cfg.Sources.NVD.BaseURL)
	assert.Equal(t, "https://api.first.org/data/v1/epss", cfg.Sources.EPSS.BaseURL)
	assert.Contains(t, cfg.Sources.Catalog.FeedURL, "known_exploited_vulnerabilities")
	assert.Equal(t, "netsec", cfg.Sources.Forum.Community)
	assert.Equal(t, 5, cfg.Sources.GitHub.MaxResults)

	assert.Equal(t, 4, cfg.Worker.Count)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 5, cfg.RateLimit.BurstSize)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Logger: LoggerConfig{Level: "debug", Format: "json"},
		Redis:  RedisConfig{Addr: "redis.internal:6380", DB: 2},
		Server: ServerConfig{Addr: ":9090"},
		Worker: WorkerConfig{Count: 16},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 16, cfg.Worker.Count)

	// Untouched fields still receive defaults.
	assert.Equal(t, 3, cfg.Redis.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Sources.NVD.Timeout)
}
