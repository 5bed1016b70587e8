package integration

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/lfs"
	"github.com/meigma/lfs/internal/testutil"
)

// addRandomObjects stores n objects of size bytes of random content and
// returns their pointers.
func addRandomObjects(tb testing.TB, srv *testutil.LFSServer, n, size int) []lfs.Pointer {
	tb.Helper()

	pointers := make([]lfs.Pointer, n)
	for i := range n {
		content := make([]byte, size)
		_, err := rand.Read(content)
		require.NoError(tb, err)
		pointers[i] = lfs.Pointer{OID: srv.AddObject(content), Size: int64(size)}
	}
	return pointers
}

func newBlobs(pointers []lfs.Pointer) []*lfs.Blob {
	blobs := make([]*lfs.Blob, len(pointers))
	for i, p := range pointers {
		blobs[i] = lfs.NewBlob(p)
	}
	return blobs
}
