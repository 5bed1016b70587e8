package lfs

import (
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/lfs/cache"
	lfshttp "github.com/meigma/lfs/http"
)

const (
	// DefaultConcurrency is the default number of requests a single call
	// keeps in flight.
	DefaultConcurrency = 50

	// DefaultBatchLimit is the number of objects the public forges accept
	// in one unauthenticated batch request.
	DefaultBatchLimit = 100
)

// Client resolves LFS pointers to download URLs and fetches their content.
//
// A Client is safe for concurrent use. Its HTTP transport and cache are
// shared by every call; construct one Client per process (or per cache
// lifetime) and pass it wherever objects are fetched.
type Client struct {
	http        *lfshttp.Client
	cache       cache.Cache
	concurrency int
	batchLimit  int
	logger      *slog.Logger

	fetchGroup singleflight.Group

	// httpOpts are applied to the transport when the client is built.
	httpOpts []lfshttp.Option
	noCache  bool
}

// New creates a Client with the given options.
//
// By default the Client memoizes downloads in a cache.Memory of
// cache.DefaultMaxEntries entries without expiry.
func New(opts ...Option) *Client {
	c := &Client{
		concurrency: DefaultConcurrency,
		batchLimit:  DefaultBatchLimit,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = lfshttp.NewClient(c.httpOpts...)
	if c.noCache {
		c.cache = nil
	} else if c.cache == nil {
		c.cache = cache.NewMemory(cache.DefaultMaxEntries)
	}
	return c
}

// Concurrency returns the maximum number of requests a call keeps in flight.
func (c *Client) Concurrency() int { return c.concurrency }

// BatchLimit returns the maximum number of objects per batch request.
func (c *Client) BatchLimit() int { return c.batchLimit }

// Cache returns the download cache, or nil when memoization is disabled.
func (c *Client) Cache() cache.Cache { return c.cache }
