package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/lfs/modindex"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <mod-id>...",
		Short: "Download the thumbnails of the given mods",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			index, err := a.loadIndex(ctx)
			if err != nil {
				return err
			}

			ids := make([]modindex.ModID, len(args))
			for i, arg := range args {
				ids[i] = modindex.ModID(arg)
			}
			mods := index.Lookup(ids...)
			if len(mods) < len(ids) {
				found := make(map[modindex.ModID]bool, len(mods))
				for _, m := range mods {
					found[m.ID] = true
				}
				var missing []string
				for _, id := range ids {
					if !found[id] {
						missing = append(missing, string(id))
					}
				}
				return errUnknownMods(missing)
			}

			thumbs := modindex.Thumbnails(mods)
			if err := a.client.ResolveBlobs(ctx, index.Tree, thumbs, false); err != nil {
				return err
			}
			a.client.FetchBlobs(ctx, thumbs, false)

			tw := newTable(cmd.OutOrStdout())
			for _, m := range mods {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.ID, lastUpdated(m), fetchedSize(m))
			}
			return tw.Flush()
		},
	}
}
