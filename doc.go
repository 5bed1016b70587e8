// Package lfs resolves Git LFS pointers into download URLs and fetches their
// content with bounded concurrency, memoizing downloads by oid.
//
// The pipeline has two phases that callers may run independently:
//
//   - Resolve: [Client.ResolveURLs] (or [Client.ResolveBlobs]) posts pointers
//     to the repository's batch API in chunks of at most [DefaultBatchLimit]
//     objects. Resolving is cheap and all-or-nothing.
//   - Fetch: [Client.Fetch] (or [Client.FetchBlobs]) downloads the resolved
//     URLs. Fetching is expensive and reports success or failure per item.
//
// Use [Page] to walk a collection a window at a time, for example resolving
// every URL up front and fetching content one page at a time.
//
// # Quick Start
//
//	c := lfs.New(lfs.WithConcurrency(50))
//	tree := forge.DefaultTree()
//
//	p, err := lfs.ParsePointer(pointerText)
//	if err != nil {
//	    return err
//	}
//	results, err := c.Download(ctx, tree, []lfs.Pointer{p})
//	if err != nil {
//	    return err
//	}
//	content := results.Map()[p.OID]
//
// # Caching
//
// Every Client memoizes downloads in a [cache.Memory] keyed by oid. Because an
// oid determines its content, a cached object is served for any URL, page,
// or repository. Configure the cache explicitly for a time budget:
//
//	c := lfs.New(lfs.WithCache(cache.NewMemory(500, cache.WithTTL(10*time.Minute))))
package lfs
