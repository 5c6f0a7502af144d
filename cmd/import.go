package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/importer"
)

var (
	importFile   string
	importEnrich bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import URLs or a bookmark-file fragment",
	Long:  "Reads pasted text from a file or stdin: plain URLs, numbered or bulleted lists, or Netscape bookmark-file HTML. New records are queued for enrichment.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var text []byte
		var err error
		if importFile != "" {
			text, err = os.ReadFile(importFile)
			if err != nil {
				return eris.Wrapf(err, "read %s", importFile)
			}
		} else {
			text, err = io.ReadAll(os.Stdin)
			if err != nil {
				return eris.Wrap(err, "read stdin")
			}
		}

		entries := importer.Parse(string(text))
		if len(entries) == 0 {
			return eris.New("no URLs found in input")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		created := st.Admit(ctx, entries)
		zap.L().Info("import complete",
			zap.Int("parsed", len(entries)),
			zap.Int("admitted", len(created)),
			zap.Int("duplicates", len(entries)-len(created)),
		)
		for _, rec := range created {
			fmt.Printf("queued  %s  %s\n", rec.ID, rec.URL)
		}

		if importEnrich && len(created) > 0 {
			stats, err := newScheduler(st).Run(ctx)
			if err != nil {
				return eris.Wrap(err, "enrich after import")
			}
			fmt.Printf("enriched %d record(s): %d done, %d warnings, %d errors\n",
				stats.Processed, stats.Done, stats.Warnings, stats.Errors)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "read input from file instead of stdin")
	importCmd.Flags().BoolVar(&importEnrich, "enrich", false, "run the enrichment queue after importing")
	rootCmd.AddCommand(importCmd)
}
