package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"shift-redeemer/internal/components/prompt"
	"shift-redeemer/internal/config"
	"shift-redeemer/internal/redeemer"
	"shift-redeemer/internal/scrapers/codesource"
	"shift-redeemer/internal/scrapers/shift"
	"shift-redeemer/internal/store/history"
	"shift-redeemer/internal/store/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	configDir string
	platform  string
	dryRun    bool
	debug     bool
	dumpHttp  string
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.configDir, "config-dir", config.DefaultDir, "Directory holding cookies, history, log and config.json5.")
	flags.StringVar(&rootFlags.platform, "platform", config.DefaultPlatform, "Platform to redeem codes for (steam, epic, psn, xboxlive, ...).")
	flags.BoolVar(&rootFlags.dryRun, "dry-run", false, "Record new codes to the history without redeeming them.")
	flags.BoolVar(&rootFlags.debug, "debug", false, "Log debug output, including HTTP traffic.")
	flags.StringVar(&rootFlags.dumpHttp, "dump-http", "", "Write every HTTP exchange to a file in a new run-* subdirectory of this directory.")
}

var rootCmd = &cobra.Command{
	Use:           "shift-redeemer",
	Short:         "shift-redeemer logs into SHiFT and redeems every code it has not seen before.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		summary, err := runPass(cmd.Context(), e, prompt.NewTerminal())
		if err != nil {
			return err
		}

		renderSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

func runPass(ctx context.Context, e env, prompter prompt.Prompter) (redeemer.Summary, error) {
	client, err := shift.NewClient(shift.ClientOptions{
		BaseUrl: e.cfg.BaseUrl,
		Dump:    e.dump,
	}, e.tel)
	if err != nil {
		return redeemer.Summary{}, err
	}
	log, err := history.Open(e.cfg.HistoryFile(), e.tel)
	if err != nil {
		return redeemer.Summary{}, err
	}

	sessions := session.NewStore(e.cfg.CookieFile(), e.clock, e.tel)
	harvester := codesource.NewHarvester(codesource.Options{
		Sources: e.cfg.Sources,
		Timeout: e.cfg.HarvestTimeout(),
		Dump:    e.dump,
	}, e.tel)
	engine := redeemer.NewEngine(client, log, redeemer.Options{
		Platform: e.cfg.Platform,
		DryRun:   e.cfg.DryRun,
	}, e.clock, e.tel)

	return engine.Run(ctx, prompter, sessions, harvester)
}

func renderSummary(w io.Writer, summary redeemer.Summary) {
	if len(summary.Results) == 0 {
		fmt.Fprintf(w, "No new codes (%d harvested).\n", summary.Harvested)
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Outcome", "Message"})
	for _, r := range summary.Results {
		t.AppendRow(table.Row{r.Code, r.Outcome, r.Message})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d harvested", summary.Harvested),
		fmt.Sprintf("%d redeemed", summary.Count(redeemer.OutcomeRedeemed)),
		fmt.Sprintf("took %s", summary.Finished.Sub(summary.Started).Round(time.Millisecond)),
	})
	t.Render()
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
