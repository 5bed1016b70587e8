package lfs

import (
	"context"
	"fmt"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/lfs/forge"
	"github.com/meigma/lfs/internal/testutil"
)

func newTestClient(srv *testutil.LFSServer, opts ...Option) *Client {
	return New(append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
}

// addObjects stores n distinct objects and returns their pointers.
func addObjects(srv *testutil.LFSServer, n int) []Pointer {
	pointers := make([]Pointer, n)
	for i := range n {
		content := fmt.Appendf(nil, "object-%04d", i)
		pointers[i] = Pointer{OID: srv.AddObject(content), Size: int64(len(content))}
	}
	return pointers
}

func TestResolveURLsChunking(t *testing.T) {
	t.Parallel()

	srv := testutil.NewLFSServer(t)
	pointers := addObjects(srv, 250)
	c := newTestClient(srv)

	urls, err := c.ResolveURLs(context.Background(), srv.Tree(), pointers)
	require.NoError(t, err)

	assert.Equal(t, 3, srv.BatchCalls())
	assert.Equal(t, []int{50, 100, 100}, srv.BatchSizes())
	require.Len(t, urls, 250)
	for i, p := range pointers {
		assert.Equal(t, srv.URL+"/objects/"+p.OID, urls[i])
	}
}

func TestResolveURLsMatchesByOID(t *testing.T) {
	t.Parallel()

	srv := testutil.NewLFSServer(t)
	srv.SetReverse(true)
	pointers := addObjects(srv, 7)
	c := newTestClient(srv)

	urls, err := c.ResolveURLs(context.Background(), srv.Tree(), pointers)
	require.NoError(t, err)
	for i, p := range pointers {
		assert.Equal(t, srv.URL+"/objects/"+p.OID, urls[i])
	}
}

func TestResolveURLsChunksRunConcurrently(t *testing.T) {
	t.Parallel()

	srv := testutil.NewLFSServer(t)
	pointers := addObjects(srv, 40)

	var inFlight, peak atomic.Int64
	release := make(chan struct{})
	var once sync.Once
	srv.SetBatchOverride(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if n >= 4 {
			once.Do(func() { close(release) })
		}
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
		nethttp.Error(w, "done", nethttp.StatusNotFound)
	})

	c := newTestClient(srv, WithBatchLimit(10), WithConcurrency(4))
	_, err := c.ResolveURLs(context.Background(), srv.Tree(), pointers)
	require.Error(t, err)
	assert.Equal(t, int64(4), peak.Load(), "all four chunk requests should be in flight together")
}

func TestResolveURLsEmpty(t *testing.T) {
	t.Parallel()

	srv := testutil.NewLFSServer(t)
	c := newTestClient(srv)

	urls, err := c.ResolveURLs(context.Background(), srv.Tree(), nil)
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Equal(t, 0, srv.BatchCalls())

	// The fast path does not even look at the tree.
	urls, err = c.ResolveURLs(context.Background(), forge.Tree{}, []Pointer{})
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestResolveURLsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler nethttp.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "html error page",
			handler: func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte("<html><body>Rate limited</body></html>"))
			},
			check: func(t *testing.T, err error) {
				var schemaErr *SchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.True(t, schemaErr.NotJSON)
				assert.Contains(t, schemaErr.Body, "Rate limited")
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name: "json of the wrong shape",
			handler: func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			},
			check: func(t *testing.T, err error) {
				var schemaErr *SchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.False(t, schemaErr.NotJSON)
			},
		},
		{
			name: "json with wrong types",
			handler: func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				_, _ = w.Write([]byte(`{"objects":"nope"}`))
			},
			check: func(t *testing.T, err error) {
				var schemaErr *SchemaError
				require.ErrorAs(t, err, &schemaErr)
				assert.False(t, schemaErr.NotJSON)
			},
		},
		{
			name: "object missing from response",
			handler: func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				_, _ = w.Write([]byte(`{"objects":[]}`))
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSchema)
			},
		},
		{
			name: "http status",
			handler: func(w nethttp.ResponseWriter, _ *nethttp.Request) {
				nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
			},
			check: func(t *testing.T, err error) {
				var transportErr *TransportError
				require.ErrorAs(t, err, &transportErr)
				assert.Equal(t, nethttp.StatusForbidden, transportErr.StatusCode)
				assert.Equal(t, "batch", transportErr.Op)
				assert.ErrorIs(t, err, ErrTransport)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := testutil.NewLFSServer(t)
			pointers := addObjects(srv, 3)
			srv.SetBatchOverride(tt.handler)
			c := newTestClient(srv)

			urls, err := c.ResolveURLs(context.Background(), srv.Tree(), pointers)
			require.Error(t, err)
			assert.Nil(t, urls)
			tt.check(t, err)
		})
	}
}

func TestResolveURLsObjectError(t *testing.T) {
	t.Parallel()

	srv := testutil.NewLFSServer(t)
	pointers := addObjects(srv, 3)
	pointers = append(pointers, Pointer{OID: "0000", Size: 1})
	c := newTestClient(srv)

	_, err := c.ResolveURLs(context.Background(), srv.Tree(), pointers)
	var objErr *ObjectError
	require.ErrorAs(t, err, &objErr)
	assert.Equal(t, "0000", objErr.OID)
	assert.Equal(t, nethttp.StatusNotFound, objErr.Code)
	assert.ErrorIs(t, err, ErrObject)
}

func TestResolveURLsOneBadChunkFailsAll(t *testing.T) {
	t.Parallel()

	srv := testutil.NewLFSServer(t)
	pointers := addObjects(srv, 25)
	// Only the last chunk contains an unknown object.
	pointers[24] = Pointer{OID: "ffff", Size: 1}
	c := newTestClient(srv, WithBatchLimit(10))

	urls, err := c.ResolveURLs(context.Background(), srv.Tree(), pointers)
	require.Error(t, err)
	assert.Nil(t, urls)
}

func TestResolveURLsInvalidTree(t *testing.T) {
	t.Parallel()

	c := New()
	_, err := c.ResolveURLs(context.Background(), forge.Tree{}, []Pointer{{OID: "abcd"}})
	require.Error(t, err)
}

func TestResolveBlobs(t *testing.T) {
	t.Parallel()

	srv := testutil.NewLFSServer(t)
	pointers := addObjects(srv, 5)
	blobs := make([]*Blob, len(pointers))
	for i, p := range pointers {
		blobs[i] = NewBlob(p)
	}
	blobs[0].SetURL("https://stale.example/0")
	c := newTestClient(srv)

	t.Run("skips resolved blobs", func(t *testing.T) {
		require.NoError(t, c.ResolveBlobs(context.Background(), srv.Tree(), append(blobs, nil), false))
		url, ok := blobs[0].URL()
		require.True(t, ok)
		assert.Equal(t, "https://stale.example/0", url)
		for _, b := range blobs[1:] {
			url, ok := b.URL()
			require.True(t, ok)
			assert.Equal(t, srv.URL+"/objects/"+b.Pointer.OID, url)
		}
		assert.Equal(t, []int{4}, srv.BatchSizes())
	})

	t.Run("nothing pending makes no request", func(t *testing.T) {
		before := srv.BatchCalls()
		require.NoError(t, c.ResolveBlobs(context.Background(), srv.Tree(), blobs, false))
		assert.Equal(t, before, srv.BatchCalls())
	})

	t.Run("refresh resolves everything", func(t *testing.T) {
		require.NoError(t, c.ResolveBlobs(context.Background(), srv.Tree(), blobs, true))
		url, _ := blobs[0].URL()
		assert.Equal(t, srv.URL+"/objects/"+blobs[0].Pointer.OID, url)
	})

	t.Run("failure leaves urls untouched", func(t *testing.T) {
		fresh := []*Blob{NewBlob(pointers[0]), NewBlob(Pointer{OID: "ffff"})}
		require.Error(t, c.ResolveBlobs(context.Background(), srv.Tree(), fresh, false))
		for _, b := range fresh {
			_, ok := b.URL()
			assert.False(t, ok)
		}
	})
}
