// Package modindex reads a mod index repository from its forge archive and
// fetches the LFS thumbnails it references.
//
// The index repository keeps one directory per mod:
//
//	mods/<author>@<name>/meta.json
//	mods/<author>@<name>/description.md
//	mods/<author>@<name>/thumbnail.jpg   (an LFS pointer)
//
// Fetch downloads the archive of a forge.Tree and builds an Index from it.
// Thumbnails start out unresolved; page through them with FetchBlobURLs and
// FetchBlobs, which share the lfs.Client's cache so a page that was already
// downloaded costs no further requests:
//
//	index, err := modindex.Fetch(ctx, lfshttp.NewClient(), forge.DefaultTree())
//	if err != nil {
//	    return err
//	}
//	index.SortByLastUpdated()
//
//	client := lfs.New()
//	next, err := index.FetchBlobs(ctx, client, 0, 20, false)
package modindex
