package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/meigma/lfs/modindex"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func lastUpdated(m *modindex.Mod) string {
	if m.Meta.LastUpdated == nil {
		return "never"
	}
	return humanize.Time(time.Unix(*m.Meta.LastUpdated, 0))
}

// declaredSize describes the thumbnail as recorded in its pointer.
func declaredSize(m *modindex.Mod) string {
	if m.Thumbnail == nil {
		return "no thumbnail"
	}
	return humanize.Bytes(uint64(max(m.Thumbnail.Pointer.Size, 0)))
}

// fetchedSize describes the thumbnail content actually downloaded.
func fetchedSize(m *modindex.Mod) string {
	if m.Thumbnail == nil {
		return "no thumbnail"
	}
	data, err := m.Thumbnail.Data()
	if err != nil {
		return fmt.Sprintf("failed: %v", err)
	}
	return "thumbnail of " + humanize.Bytes(uint64(len(data)))
}
