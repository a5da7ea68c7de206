package config

import "time"

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type SourcesConfig struct {
	NVD       NVDConfig       `mapstructure:"nvd"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	EPSS      EPSSConfig      `mapstructure:"epss"`
	ExploitDB ExploitDBConfig `mapstructure:"exploitdb"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Forum     ForumConfig     `mapstructure:"forum"`
}

type NVDConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CatalogConfig struct {
	FeedURL string        `mapstructure:"feed_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EPSSConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExploitDBConfig struct {
	SearchURL string        `mapstructure:"search_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type GitHubConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Token      string        `mapstructure:"token"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type ForumConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Community  string        `mapstructure:"community"`
	UserAgent  string        `mapstructure:"user_agent"`
	Token      string        `mapstructure:"token"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type WorkerConfig struct {
	Count int `mapstructure:"count"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// ApplyDefaults fills in zero values with production defaults. Configuration
// comes from flags and environment only, no YAML files.
func (c *Config) ApplyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if len(c.Logger.OutputPaths) == 0 {
		c.Logger.OutputPaths = []string{"stdout"}
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.MaxRetries == 0 {
		c.Redis.MaxRetries = 3
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Sources.NVD.BaseURL == "" {
		c.Sources.NVD.BaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	}
	if c.Sources.NVD.Timeout == 0 {
		c.Sources.NVD.Timeout = 30 * time.Second
	}
	if c.Sources.Catalog.FeedURL == "" {
		c.Sources.Catalog.FeedURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"
	}
	if c.Sources.Catalog.Timeout == 0 {
		c.Sources.Catalog.Timeout = 30 * time.Second
	}
	if c.Sources.EPSS.BaseURL == "" {
		c.Sources.EPSS.BaseURL = "https://api.first.org/data/v1/epss"
	}
	if c.Sources.EPSS.Timeout == 0 {
		c.Sources.EPSS.Timeout = 10 * time.Second
	}
	if c.Sources.ExploitDB.SearchURL == "" {
		c.Sources.ExploitDB.SearchURL = "https://www.exploit-db.com/search"
	}
	if c.Sources.ExploitDB.Timeout == 0 {
		c.Sources.ExploitDB.Timeout = 5 * time.Second
	}
	if c.Sources.GitHub.BaseURL == "" {
		c.Sources.GitHub.BaseURL = "https://api.github.com"
	}
	if c.Sources.GitHub.MaxResults == 0 {
		c.Sources.GitHub.MaxResults = 5
	}
	if c.Sources.GitHub.Timeout == 0 {
		c.Sources.GitHub.Timeout = 15 * time.Second
	}
	if c.Sources.Forum.BaseURL == "" {
		c.Sources.Forum.BaseURL = "https://www.reddit.com"
	}
	if c.Sources.Forum.Community == "" {
		c.Sources.Forum.Community = "netsec"
	}
	if c.Sources.Forum.UserAgent == "" {
		c.Sources.Forum.UserAgent = "vulnwatch/1.0"
	}
	if c.Sources.Forum.MaxResults == 0 {
		c.Sources.Forum.MaxResults = 5
	}
	if c.Sources.Forum.Timeout == 0 {
		c.Sources.Forum.Timeout = 15 * time.Second
	}
	if c.Worker.Count == 0 {
		c.Worker.Count = 4
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.BurstSize == 0 {
		c.RateLimit.BurstSize = 5
	}
}
