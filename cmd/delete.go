package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		for _, id := range args {
			if err := st.Delete(ctx, id); err != nil {
				return eris.Wrapf(err, "delete %s", id)
			}
			fmt.Printf("deleted %s\n", id)
		}
		return nil
	},
}

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !clearYes {
			return eris.New("refusing to clear without --yes")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		n := len(st.List())
		if err := st.Clear(ctx); err != nil {
			return err
		}
		fmt.Printf("cleared %d record(s)\n", n)
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion of all records")
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
}
