package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ostrichlabs/duraq/pkg/duraq"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <dir> <queue>",
	Short: "Show archive size and next id for a queue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		j, err := duraq.Open(args[0], args[1], opts)
		if err != nil {
			return fmt.Errorf("opening queue: %w", err)
		}
		defer j.Close()

		stats, err := j.Stats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Queue:\t%s\n", args[1])
		fmt.Fprintf(w, "Next id:\t%d\n", stats.NextID)
		fmt.Fprintf(w, "Archive size:\t%d bytes\n", stats.ArchiveSize)
		return w.Flush()
	},
}
