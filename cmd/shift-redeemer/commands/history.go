package commands

import (
	"fmt"

	"shift-redeemer/internal/store/history"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists the codes that have already been redeemed (or recorded by a dry run).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		log, err := history.Open(e.cfg.HistoryFile(), e.tel)
		if err != nil {
			return err
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"#", "Code"})
		for i, code := range log.Codes() {
			t.AppendRow(table.Row{i + 1, code})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d codes", log.Len())})
		t.Render()
		return nil
	},
}
