package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "撮影履歴を新しい順に表示します",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.history.List(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "撮影履歴はまだありません。")
				return nil
			}
			for i, e := range entries {
				if limit > 0 && i >= limit {
					break
				}
				fmt.Fprintf(out, "%s  %s  %s  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.ID, e.Title, e.PreviewImageRef)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "表示する件数（0で全件）")

	return cmd
}
