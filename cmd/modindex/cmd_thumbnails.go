package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meigma/lfs"
)

func newThumbnailsCmd(a *app) *cobra.Command {
	var (
		pageSize int
		pages    int
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "thumbnails",
		Short: "Resolve every thumbnail URL, then download thumbnails page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pageSize < 1 {
				return fmt.Errorf("--page-size must be at least 1, got %d", pageSize)
			}
			ctx := cmd.Context()
			index, err := a.loadIndex(ctx)
			if err != nil {
				return err
			}

			// One resolve pass up front; pages below only download.
			if _, err := index.FetchBlobURLs(ctx, a.client, 0, len(index.Mods), refresh); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			offset := 0
			for n := 1; pages <= 0 || n <= pages; n++ {
				next, err := index.FetchBlobs(ctx, a.client, offset, pageSize, false)
				if errors.Is(err, lfs.ErrOutOfBounds) {
					break
				}
				if err != nil {
					return err
				}
				a.logger.Debug("fetched page", slog.Int("page", n), slog.Int("offset", offset), slog.Int("next", next))

				fmt.Fprintf(out, "page %d\n", n)
				tw := newTable(out)
				for _, m := range index.Mods[offset:next] {
					fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.ID, lastUpdated(m), fetchedSize(m))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				offset = next
			}
			a.logCacheStats()
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 5, "mods per page")
	cmd.Flags().IntVar(&pages, "pages", 4, "pages to fetch (0 for all)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "resolve URLs again even if already known")
	return cmd
}
