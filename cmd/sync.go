package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/pkg/notion"
)

var syncDB string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync records to a Notion database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Notion.Token == "" {
			return eris.New("notion token is required")
		}
		dbID := syncDB
		if dbID == "" {
			dbID = cfg.Notion.BookmarksDB
		}
		if dbID == "" {
			return eris.New("notion database ID is required")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		client := notion.NewClient(cfg.Notion.Token)
		result, err := notion.Sync(ctx, client, dbID, st.List())
		if err != nil {
			return eris.Wrap(err, "sync")
		}

		fmt.Printf("synced %d record(s), %d failed\n", result.Synced, result.Failed)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncDB, "db", "", "target Notion database ID (overrides config)")
	rootCmd.AddCommand(syncCmd)
}
