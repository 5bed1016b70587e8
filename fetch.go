package lfs

import (
	"context"
	"log/slog"

	"github.com/meigma/lfs/internal/batch"
)

// Item is one object to download. Key is the object's oid and doubles as
// its cache key; downloaded content that does not hash to Key fails with
// ErrHashMismatch.
type Item struct {
	Key string
	URL string
}

// Result is the outcome of downloading one Item.
type Result struct {
	// Index is the position of the item in the slice passed to Fetch.
	Index int
	Key   string
	Data  []byte
	Err   error
}

// OK reports whether the download succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Results is the ordered outcome of a Fetch call.
type Results []Result

// Map returns the content of every successful download by key. Failed
// downloads are absent; callers decide what a missing key means.
func (rs Results) Map() map[string][]byte {
	m := make(map[string][]byte, len(rs))
	for _, r := range rs {
		if r.Err == nil {
			m[r.Key] = r.Data
		}
	}
	return m
}

// Failed returns the failed results, in order.
func (rs Results) Failed() Results {
	var failed Results
	for _, r := range rs {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Fetch downloads every item that has a URL, keeping at most Concurrency
// downloads in flight. Items without a URL are skipped and do not appear in
// the results.
//
// Results are returned in the order of items whatever order the downloads
// finish in. A failed download never stops the others; it is reported in
// its Result. Content is memoized by key through the client's cache.
func (c *Client) Fetch(ctx context.Context, items []Item) Results {
	dispatch := make([]int, 0, len(items))
	for i, item := range items {
		if item.URL != "" {
			dispatch = append(dispatch, i)
		}
	}
	if len(dispatch) == 0 {
		return nil
	}

	c.logger.Debug("fetching lfs objects",
		slog.Int("count", len(dispatch)),
		slog.Int("skipped", len(items)-len(dispatch)),
		slog.Int("concurrency", c.concurrency))

	results := batch.Each(ctx, dispatch, c.concurrency, func(ctx context.Context, _ int, idx int) Result {
		item := items[idx]
		data, err := c.fetchOne(ctx, item.URL, item.Key)
		if err != nil {
			c.logger.Debug("lfs object fetch failed",
				slog.String("oid", item.Key),
				slog.Any("error", err))
		}
		return Result{Index: idx, Key: item.Key, Data: data, Err: err}
	})
	return Results(results)
}

// FetchBlobs downloads the content of every blob that has a URL and records
// each outcome on its blob. A failure leaves earlier content in place unless
// refresh is set. The per-blob results are returned in the order of blobs;
// Result.Index refers to the position in blobs.
func (c *Client) FetchBlobs(ctx context.Context, blobs []*Blob, refresh bool) Results {
	targets := make([]int, 0, len(blobs))
	items := make([]Item, 0, len(blobs))
	for i, b := range blobs {
		if b == nil {
			continue
		}
		url, ok := b.URL()
		if !ok {
			continue
		}
		targets = append(targets, i)
		items = append(items, Item{Key: b.Pointer.OID, URL: url})
	}

	results := c.Fetch(ctx, items)
	for i := range results {
		r := &results[i]
		r.Index = targets[r.Index]
		blobs[r.Index].record(r.Data, r.Err, refresh)
	}
	return results
}
