package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "linkhoard",
	Short: "Bookmark enrichment tool",
	Long:  "Imports URLs or browser bookmark exports, derives titles, summaries, keywords and publication dates via a web-grounded AI call, and keeps the enriched records editable, exportable, and syncable to Notion.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
