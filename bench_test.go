package lfs

import (
	"context"
	"fmt"
	"testing"

	"github.com/meigma/lfs/cache"
	"github.com/meigma/lfs/internal/testutil"
)

var benchSinkResults Results

func BenchmarkFetchCacheHit(b *testing.B) {
	cases := []struct {
		name  string
		count int
		size  int
	}{
		{name: "objects=20/size=4k", count: 20, size: 4 << 10},
		{name: "objects=20/size=64k", count: 20, size: 64 << 10},
		{name: "objects=100/size=64k", count: 100, size: 64 << 10},
	}

	for _, bc := range cases {
		b.Run(bc.name, func(b *testing.B) {
			srv := testutil.NewLFSServer(b)
			items := benchItems(srv, bc.count, bc.size)
			c := New(WithHTTPClient(srv.Client()), WithCache(cache.NewMemory(bc.count)))
			ctx := context.Background()

			// Warm the cache.
			benchSinkResults = c.Fetch(ctx, items)

			b.SetBytes(int64(bc.count * bc.size))
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				benchSinkResults = c.Fetch(ctx, items)
			}
		})
	}
}

func BenchmarkFetchUncached(b *testing.B) {
	for _, concurrency := range []int{1, 8, 50} {
		b.Run(fmt.Sprintf("objects=50/size=16k/concurrency=%d", concurrency), func(b *testing.B) {
			srv := testutil.NewLFSServer(b)
			items := benchItems(srv, 50, 16<<10)
			c := New(WithHTTPClient(srv.Client()), WithoutCache(), WithConcurrency(concurrency))
			ctx := context.Background()

			b.SetBytes(50 * 16 << 10)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				benchSinkResults = c.Fetch(ctx, items)
			}
		})
	}
}

func benchItems(srv *testutil.LFSServer, count, size int) []Item {
	items := make([]Item, count)
	for i := range count {
		content := make([]byte, size)
		copy(content, fmt.Sprintf("bench-object-%06d", i))
		oid := srv.AddObject(content)
		items[i] = Item{Key: oid, URL: srv.URL + "/objects/" + oid}
	}
	return items
}
