package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List mods, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			index, err := a.loadIndex(cmd.Context())
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tTITLE\tUPDATED\tTHUMBNAIL")
			for _, m := range index.Mods {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Meta.Title, lastUpdated(m), declaredSize(m))
			}
			return tw.Flush()
		},
	}
}
