package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	editTitle      string
	editSummary    string
	editAddKeyword []string
	editRmKeyword  []string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a record's title, summary, or keywords",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, ok := st.Get(args[0])
		if !ok {
			return eris.Errorf("record not found: %s", args[0])
		}

		if cmd.Flags().Changed("title") {
			rec.Title = editTitle
		}
		if cmd.Flags().Changed("summary") {
			rec.Summary = editSummary
		}
		rec.Keywords = append(rec.Keywords, editAddKeyword...)
		if len(editRmKeyword) > 0 {
			removed := make(map[string]struct{}, len(editRmKeyword))
			for _, kw := range editRmKeyword {
				removed[strings.ToLower(kw)] = struct{}{}
			}
			kept := rec.Keywords[:0]
			for _, kw := range rec.Keywords {
				if _, drop := removed[strings.ToLower(kw)]; !drop {
					kept = append(kept, kw)
				}
			}
			rec.Keywords = kept
		}

		if err := st.Update(ctx, rec); err != nil {
			return err
		}
		updated, _ := st.Get(rec.ID)
		fmt.Printf("%s  %s\n  keywords: %s\n", updated.ID, updated.Title, strings.Join(updated.Keywords, ", "))
		return nil
	},
}

func init() {
	editCmd.Flags().StringVar(&editTitle, "title", "", "new title")
	editCmd.Flags().StringVar(&editSummary, "summary", "", "new summary")
	editCmd.Flags().StringSliceVar(&editAddKeyword, "add-keyword", nil, "keyword to add (repeatable)")
	editCmd.Flags().StringSliceVar(&editRmKeyword, "remove-keyword", nil, "keyword to remove (repeatable)")
	rootCmd.AddCommand(editCmd)
}
