package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/model"
)

var retryRun bool

var retryCmd = &cobra.Command{
	Use:   "retry <id>...",
	Short: "Re-queue failed or warning records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, id := range args {
			if err := st.Retry(ctx, id); err != nil {
				return eris.Wrapf(err, "retry %s", id)
			}
			rec, _ := st.Get(id)
			fmt.Printf("%s  %s -> %s\n", rec.ID, rec.URL, model.StatusQueued)
		}

		if retryRun {
			stats, err := newScheduler(st).Run(ctx)
			if err != nil {
				return eris.Wrap(err, "enrich after retry")
			}
			fmt.Printf("processed %d record(s): %d done, %d warnings, %d errors\n",
				stats.Processed, stats.Done, stats.Warnings, stats.Errors)
		}
		return nil
	},
}

func init() {
	retryCmd.Flags().BoolVar(&retryRun, "run", false, "run the enrichment queue after re-queuing")
	rootCmd.AddCommand(retryCmd)
}
