package core

import "errors"

// Error taxonomy shared across the enrichment pipeline. Callers classify
// failures with errors.Is and decide between retry, fallback and surfacing.
var (
	// ErrInvalidInput marks malformed identifiers or date ranges. Reported
	// immediately, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks network or parse failures from an
	// external source. Recoverable locally via stale-cache fallback when a
	// prior snapshot exists.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited marks an explicit throttle signal from a source.
	// Surfaced to the caller with a retry-later classification.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrCacheUnavailable marks an unreachable cache backend. The memoizing
	// layer bypasses caching for the call instead of failing the enrichment.
	ErrCacheUnavailable = errors.New("cache backend unavailable")
)
