package lfs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/opencontainers/go-digest"
)

// fetchOne downloads url, memoized by oid.
//
// A cache hit returns without network I/O. Only verified, successful
// downloads are cached, so a failure is retried by the next call. Concurrent
// misses for the same oid are collapsed into one request; that request is
// detached from any single caller's context, and each caller stops waiting
// when its own context ends.
func (c *Client) fetchOne(ctx context.Context, url, oid string) ([]byte, error) {
	if c.cache == nil {
		return c.download(ctx, url, oid)
	}

	// Check cache first (fast path, avoids singleflight overhead)
	if data, ok := c.cache.Get(oid); ok {
		c.logger.Debug("lfs object served from cache", slog.String("oid", oid))
		return data, nil
	}

	ch := c.fetchGroup.DoChan(oid, func() (any, error) {
		// Double-check: another caller may have populated the cache
		// between our check and acquiring the singleflight key.
		if data, ok := c.cache.Get(oid); ok {
			return data, nil
		}
		// The transport timeout still bounds the request.
		data, err := c.download(context.WithoutCancel(ctx), url, oid)
		if err != nil {
			return nil, err
		}
		c.cache.Put(oid, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, transportError("download", url, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data := res.Val.([]byte) //nolint:errcheck // type is guaranteed by the closure
		if res.Shared {
			// Every waiter gets its own copy.
			data = bytes.Clone(data)
		}
		return data, nil
	}
}

// download performs one uncached GET and checks the content against oid.
func (c *Client) download(ctx context.Context, url, oid string) ([]byte, error) {
	c.logger.Debug("downloading lfs object", slog.String("url", url))
	data, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, transportError("download", url, err)
	}
	if got := digest.FromBytes(data); got.Encoded() != oid {
		return nil, fmt.Errorf("%w: oid %s, got %s", ErrHashMismatch, oid, got.Encoded())
	}
	return data, nil
}
