package commands

import (
	"fmt"

	"shift-redeemer/internal/scrapers/codesource"
	"shift-redeemer/internal/store/history"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(codesCmd)
}

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "Harvests codes from the configured sources and lists them without logging in.",
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

		harvester := codesource.NewHarvester(codesource.Options{
			Sources: e.cfg.Sources,
			Timeout: e.cfg.HarvestTimeout(),
			Dump:    e.dump,
		}, e.tel)
		codes, err := harvester.FetchCodes(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch codes: %w", err)
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Code", "Seen"})
		unseen := 0
		for _, code := range codes {
			seen := log.Contains(code)
			if !seen {
				unseen++
			}
			t.AppendRow(table.Row{code, seen})
		}
		t.AppendFooter(table.Row{fmt.Sprintf("%d codes", len(codes)), fmt.Sprintf("%d new", unseen)})
		t.Render()
		return nil
	},
}
