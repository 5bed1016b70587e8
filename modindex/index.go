package modindex

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/meigma/lfs"
	"github.com/meigma/lfs/forge"
	lfshttp "github.com/meigma/lfs/http"
)

// ErrInvalidArchive is returned when the index archive cannot be read.
var ErrInvalidArchive = errors.New("modindex: invalid archive")

// Mod is one entry of the index.
type Mod struct {
	ID   ModID
	Meta Meta
	// Description is the content of description.md, empty if absent.
	Description string
	// Thumbnail is nil when the mod has no thumbnail.
	Thumbnail *lfs.Blob
}

// Index is the set of mods found in one revision of an index repository.
type Index struct {
	Tree forge.Tree
	Mods []*Mod
}

// Fetch downloads the archive of tree and builds an Index from it.
func Fetch(ctx context.Context, client *lfshttp.Client, tree forge.Tree) (*Index, error) {
	if err := tree.Validate(); err != nil {
		return nil, err
	}
	url := tree.ArchiveURL()
	data, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download index archive %s: %w", url, err)
	}
	return FromZip(bytes.NewReader(data), int64(len(data)), tree)
}

// FromZip builds an Index from a zip archive of tree.
//
// Only regular files at <prefix>*/mods/<id>/<file> are considered, where
// prefix is tree.ArchivePrefix(). Recognized files are meta.json,
// description.md and thumbnail.jpg or thumbnail.png; everything else is
// ignored. Mods are ordered by ID.
func FromZip(r io.ReaderAt, size int64, tree forge.Tree) (*Index, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	prefix := tree.ArchivePrefix()
	mods := make(map[ModID]*Mod)
	for _, f := range zr.File {
		if !f.Mode().IsRegular() {
			continue
		}
		id, name, ok := modPath(f.Name, prefix)
		if !ok {
			continue
		}

		m := mods[id]
		if m == nil {
			m = &Mod{ID: id}
			mods[id] = m
		}
		if err := m.load(f, name); err != nil {
			return nil, fmt.Errorf("mod %s: %w", id, err)
		}
	}

	index := &Index{Tree: tree, Mods: make([]*Mod, 0, len(mods))}
	for _, m := range mods {
		index.Mods = append(index.Mods, m)
	}
	slices.SortFunc(index.Mods, func(a, b *Mod) int { return cmp.Compare(a.ID, b.ID) })
	return index, nil
}

// modPath splits an archive path of the form <root>/mods/<id>/<name>.
func modPath(path, prefix string) (ModID, string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], prefix) || parts[1] != "mods" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" {
		return "", "", false
	}
	return ModID(parts[2]), parts[3], true
}

func (m *Mod) load(f *zip.File, name string) error {
	switch name {
	case "meta.json", "description.md", "thumbnail.jpg", "thumbnail.png":
	default:
		return nil
	}

	data, err := readFile(f)
	if err != nil {
		return err
	}

	switch name {
	case "meta.json":
		meta, err := ParseMeta(data)
		if err != nil {
			return err
		}
		m.Meta = meta
	case "description.md":
		m.Description = strings.ToValidUTF8(string(data), "�")
	default:
		p, err := lfs.ParsePointer(string(data))
		if err != nil {
			return fmt.Errorf("parse thumbnail pointer: %w", err)
		}
		m.Thumbnail = lfs.NewBlob(p)
	}
	return nil
}

func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidArchive, f.Name, err)
	}
	return data, nil
}

// SortByLastUpdated orders mods newest first. Mods without a timestamp
// sort last; ties are ordered by title.
func (ix *Index) SortByLastUpdated() {
	slices.SortStableFunc(ix.Mods, func(a, b *Mod) int {
		return cmp.Or(
			compareUpdated(b.Meta.LastUpdated, a.Meta.LastUpdated),
			cmp.Compare(a.Meta.Title, b.Meta.Title),
		)
	})
}

// compareUpdated orders timestamps with nil below every value.
func compareUpdated(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}

// Lookup returns the mods with the given IDs, in the order of ids.
// Unknown IDs are skipped.
func (ix *Index) Lookup(ids ...ModID) []*Mod {
	byID := make(map[ModID]*Mod, len(ix.Mods))
	for _, m := range ix.Mods {
		byID[m.ID] = m
	}
	found := make([]*Mod, 0, len(ids))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			found = append(found, m)
		}
	}
	return found
}

// Thumbnails returns the thumbnail blobs of mods, skipping mods without one.
func Thumbnails(mods []*Mod) []*lfs.Blob {
	blobs := make([]*lfs.Blob, 0, len(mods))
	for _, m := range mods {
		if m.Thumbnail != nil {
			blobs = append(blobs, m.Thumbnail)
		}
	}
	return blobs
}

// FetchBlobURLs resolves the thumbnail URLs of the count mods starting at
// offset. Thumbnails that already have a URL are skipped unless refresh is
// set. It returns the offset of the next page.
func (ix *Index) FetchBlobURLs(ctx context.Context, client *lfs.Client, offset, count int, refresh bool) (int, error) {
	page, next, err := lfs.Page(ix.Mods, offset, count)
	if err != nil {
		return 0, err
	}
	if err := client.ResolveBlobs(ctx, ix.Tree, Thumbnails(page), refresh); err != nil {
		return 0, err
	}
	return next, nil
}

// FetchBlobs resolves and downloads the thumbnails of the count mods
// starting at offset, and returns the offset of the next page.
//
// Download failures do not fail the call; they are recorded on each
// thumbnail. With refresh set, URLs are resolved again and a failed
// download discards previously fetched content.
func (ix *Index) FetchBlobs(ctx context.Context, client *lfs.Client, offset, count int, refresh bool) (int, error) {
	next, err := ix.FetchBlobURLs(ctx, client, offset, count, refresh)
	if err != nil {
		return 0, err
	}
	page := ix.Mods[offset:next]
	client.FetchBlobs(ctx, Thumbnails(page), refresh)
	return next, nil
}
