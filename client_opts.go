package lfs

import (
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/meigma/lfs/cache"
	lfshttp "github.com/meigma/lfs/http"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for batch and download requests.
// If not set, a client that retries 429 and 5xx responses is used.
func WithHTTPClient(client *nethttp.Client) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, lfshttp.WithClient(client))
	}
}

// WithTimeout bounds every individual request. A download that times out
// is an ordinary per-item failure; a batch request that times out fails
// its resolve call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, lfshttp.WithTimeout(d))
	}
}

// WithUserAgent sets the User-Agent header for requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, lfshttp.WithHeader("User-Agent", ua))
	}
}

// WithMaxObjectBytes bounds the size of any single response body.
func WithMaxObjectBytes(n int64) Option {
	return func(c *Client) {
		c.httpOpts = append(c.httpOpts, lfshttp.WithMaxResponseBytes(n))
	}
}

// WithConcurrency sets how many requests one call may keep in flight.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		c.concurrency = max(n, 1)
	}
}

// WithBatchLimit sets the maximum number of objects per batch request.
// Values below 1 use DefaultBatchLimit.
func WithBatchLimit(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = DefaultBatchLimit
		}
		c.batchLimit = n
	}
}

// WithCache sets the cache used to memoize downloads by oid.
func WithCache(cc cache.Cache) Option {
	return func(c *Client) {
		c.cache = cc
		c.noCache = cc == nil
	}
}

// WithoutCache disables download memoization; every fetch hits the network.
func WithoutCache() Option {
	return func(c *Client) {
		c.cache = nil
		c.noCache = true
	}
}

// WithLogger sets the logger for debug output.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}
