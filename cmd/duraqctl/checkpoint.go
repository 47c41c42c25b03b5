package main

import (
	"fmt"

	"github.com/ostrichlabs/duraq/pkg/duraq"
	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <dir> <queue>",
	Short: "Force a checkpoint of every reader in a queue",
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

		if err := j.Checkpoint(); err != nil {
			return fmt.Errorf("checkpointing: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "checkpointed all readers for %s\n", args[1])
		return nil
	},
}
