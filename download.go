package lfs

import (
	"context"

	"github.com/meigma/lfs/forge"
)

// Download resolves pointers against tree and fetches their content.
//
// A resolve failure fails the whole call. Download failures are reported
// per pointer in the returned Results, which follow the order of pointers.
func (c *Client) Download(ctx context.Context, tree forge.Tree, pointers []Pointer) (Results, error) {
	urls, err := c.ResolveURLs(ctx, tree, pointers)
	if err != nil {
		return nil, err
	}
	items := make([]Item, len(pointers))
	for i, p := range pointers {
		items[i] = Item{Key: p.OID, URL: urls[i]}
	}
	return c.Fetch(ctx, items), nil
}
