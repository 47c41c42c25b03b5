package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ostrichlabs/duraq/internal/segment"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <dir> <queue>",
	Short: "List a queue's segments and the id range each holds",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := segment.Discover(args[0], args[1])
		if err != nil {
			return fmt.Errorf("discovering segments: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SEGMENT\tSIZE\tFIRST ID\tLAST ID")
		for _, info := range infos {
			first, last, err := segmentIDRange(info.Path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", info.Path, err)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", info.Path, info.Size, first, last)
		}
		return w.Flush()
	},
}

func segmentIDRange(path string) (first, last uint64, err error) {
	r, err := segment.OpenForRead(path)
	if err != nil {
		return 0, 0, err
	}
	defer r.Close()

	haveFirst := false
	for {
		rec, err := r.Next()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return 0, 0, err
		}
		if rec.Put == nil {
			continue
		}
		if !haveFirst {
			first = rec.Put.ID
			haveFirst = true
		}
		last = rec.Put.ID
	}
	return first, last, nil
}
