package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vulnwatch/vulnwatch/internal/config"
	"github.com/vulnwatch/vulnwatch/internal/logger"
)

var (
	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vulnwatch",
	Short: "CVE enrichment service with exploitation intelligence",
	Long: `Vulnwatch - CVE Enrichment Service

Fetches vulnerability records from the NVD and enriches them with
exploitation intelligence: CISA KEV catalog membership, EPSS exploit
probability, and public exploit evidence from Exploit-DB, GitHub, and
security forums. Every upstream lookup is memoized in Redis so repeated
queries within the TTL window cost nothing.

COMMANDS:
  vulnwatch serve                  - Start the HTTP API server
  vulnwatch enrich CVE-2021-44228  - Enrich one or more CVEs from the CLI
  vulnwatch catalog recent         - Recent KEV catalog additions
  vulnwatch catalog lookup <id>    - KEV catalog entry for one CVE
  vulnwatch cache keys             - List cache keys matching a pattern
  vulnwatch cache clear            - Invalidate cache keys by pattern
  vulnwatch cache info             - Cache backend statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		var err error
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			// Sync errors on stdout/stderr are expected on Linux.
			if err := log.Sync(); err != nil {
				if err.Error() != "sync /dev/stdout: invalid argument" && err.Error() != "sync /dev/stderr: invalid argument" {
					fmt.Fprintf(os.Stderr, "Warning: failed to sync logger: %v\n", err)
				}
			}
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")
	viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logger.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindEnv("logger.level", "VULNWATCH_LOG_LEVEL")
	viper.BindEnv("logger.format", "VULNWATCH_LOG_FORMAT")

	// Redis configuration
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Redis server address")
	rootCmd.PersistentFlags().String("redis-password", "", "Redis password")
	rootCmd.PersistentFlags().Int("redis-db", 0, "Redis database number")
	viper.BindPFlag("redis.addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	viper.BindPFlag("redis.password", rootCmd.PersistentFlags().Lookup("redis-password"))
	viper.BindPFlag("redis.db", rootCmd.PersistentFlags().Lookup("redis-db"))
	viper.BindEnv("redis.addr", "VULNWATCH_REDIS_ADDR", "REDIS_URL")
	viper.BindEnv("redis.password", "VULNWATCH_REDIS_PASSWORD")

	// Worker configuration
	rootCmd.PersistentFlags().Int("workers", 4, "Concurrent enrichment workers per batch")
	viper.BindPFlag("worker.count", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindEnv("worker.count", "VULNWATCH_WORKERS")

	// Upstream rate limiting
	rootCmd.PersistentFlags().Float64("rate-limit", 10, "Requests per second per evidence source")
	rootCmd.PersistentFlags().Int("rate-burst", 5, "Rate limit burst size")
	viper.BindPFlag("rate_limit.requests_per_second", rootCmd.PersistentFlags().Lookup("rate-limit"))
	viper.BindPFlag("rate_limit.burst_size", rootCmd.PersistentFlags().Lookup("rate-burst"))
	viper.BindEnv("rate_limit.requests_per_second", "VULNWATCH_RATE_LIMIT")

	// Upstream sources
	viper.BindEnv("sources.nvd.base_url", "VULNWATCH_NVD_BASE_URL")
	viper.BindEnv("sources.catalog.feed_url", "VULNWATCH_KEV_FEED_URL")
	viper.BindEnv("sources.epss.base_url", "VULNWATCH_EPSS_BASE_URL")
	viper.BindEnv("sources.exploitdb.search_url", "VULNWATCH_EXPLOITDB_SEARCH_URL")
	viper.BindEnv("sources.github.base_url", "VULNWATCH_GITHUB_BASE_URL")
	viper.BindEnv("sources.forum.base_url", "VULNWATCH_FORUM_BASE_URL")
	viper.BindEnv("sources.forum.community", "VULNWATCH_FORUM_COMMUNITY")

	// API keys (environment variables only, never flags)
	viper.BindEnv("sources.nvd.api_key", "NVD_API_KEY")
	viper.BindEnv("sources.github.token", "GITHUB_TOKEN")
	viper.BindEnv("sources.forum.token", "VULNWATCH_FORUM_TOKEN")
}

func initConfig() error {
	// No YAML files - configuration from flags + env vars only
	viper.AutomaticEnv()
	viper.SetEnvPrefix("VULNWATCH")

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ApplyDefaults()
	return nil
}
