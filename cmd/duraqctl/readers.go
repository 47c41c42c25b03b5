package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ostrichlabs/duraq/internal/reader"
	"github.com/ostrichlabs/duraq/internal/segment"
	"github.com/spf13/cobra"
)

var readersCmd = &cobra.Command{
	Use:   "readers <dir> <queue>",
	Short: "List a queue's readers with their head and pending doneSet size",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := segment.DiscoverReaders(args[0], args[1])
		if err != nil {
			return fmt.Errorf("discovering readers: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "READER\tHEAD\tDONESET SIZE")
		for _, name := range names {
			path := segment.ReaderStatePath(args[0], args[1], name)
			st, err := reader.LoadState(name, path)
			if err != nil {
				return fmt.Errorf("loading reader %s: %w", name, err)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\n", name, st.Head(), len(st.DoneSet()))
		}
		return w.Flush()
	},
}
