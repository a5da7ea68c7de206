// Package httpclient builds the HTTP clients used to reach external
// vulnerability sources.
package httpclient

import (
	"fmt"
	"net/http"
	"time"
)

// Config configures a source-facing HTTP client.
type Config struct {
	Timeout         time.Duration
	FollowRedirects bool
	MaxRedirects    int
}

// DefaultConfig returns the configuration used for most source clients.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		FollowRedirects: true,
		MaxRedirects:    5,
	}
}

// New creates an HTTP client with timeout enforcement, pooled connections
// and a bounded redirect policy.
func New(config Config) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}

	if !config.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if config.MaxRedirects > 0 {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.MaxRedirects)
			}
			return nil
		}
	}

	return client
}

// NewWithTimeout creates a client with the default policy and a custom
// timeout. Source timeouts differ per upstream (the exploit index probe is
// best-effort and kept short).
func NewWithTimeout(timeout time.Duration) *http.Client {
	cfg := DefaultConfig()
	cfg.Timeout = timeout
	return New(cfg)
}
