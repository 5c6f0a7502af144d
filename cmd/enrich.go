package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/resilience"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Process all queued records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		queued := st.Queued()
		if len(queued) == 0 {
			fmt.Println("nothing queued")
			return nil
		}

		stats, err := newScheduler(st).Run(ctx)
		if err != nil {
			if resilience.IsAuth(err) {
				fmt.Println("enrichment halted: check your API credential (remaining records stay queued)")
			}
			return eris.Wrap(err, "enrich")
		}

		fmt.Printf("processed %d record(s): %d done, %d warnings, %d errors\n",
			stats.Processed, stats.Done, stats.Warnings, stats.Errors)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}
