package lfs

// Blob is the fetch state of one Pointer: its resolved download URL and the
// result of the last fetch.
//
// A new Blob has no URL and reports ErrNotYetFetched. Once a fetch succeeds,
// later failures leave the successful data in place unless the caller asks
// for a refresh, so readers always see the last good content.
//
// A Blob does not know which repository it belongs to; batch calls take the
// forge.Tree explicitly. Blobs are not safe for concurrent mutation; the
// Client only updates them from the calling goroutine.
type Blob struct {
	Pointer Pointer

	url     string
	data    []byte
	err     error
	fetched bool
}

// NewBlob returns an unresolved, unfetched Blob for p.
func NewBlob(p Pointer) *Blob {
	return &Blob{Pointer: p, err: ErrNotYetFetched}
}

// URL returns the download URL, if one has been resolved.
func (b *Blob) URL() (string, bool) {
	return b.url, b.url != ""
}

// SetURL records a resolved download URL.
func (b *Blob) SetURL(url string) {
	b.url = url
}

// Data returns the fetched content, or the error of the last failed attempt
// when no content has been fetched yet.
func (b *Blob) Data() ([]byte, error) {
	if b.fetched {
		return b.data, nil
	}
	return nil, b.err
}

// Fetched reports whether content is available.
func (b *Blob) Fetched() bool {
	return b.fetched
}

// record stores the outcome of a fetch attempt.
func (b *Blob) record(data []byte, err error, refresh bool) {
	switch {
	case err == nil:
		b.data, b.err, b.fetched = data, nil, true
	case refresh || !b.fetched:
		b.data, b.err, b.fetched = nil, err, false
	}
}
