package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch the benchmark workflows and wait for them to finish",
	Long: `Triggers every benchmark workflow (GitHub: .github/workflows/benchmark_*.yml,
CircleCI: one pipeline on the dispatch ref), resolves the runs they start and
records their IDs to $GITHUB_ENV, the process environment and, when
CIBENCH_STATE_DB is set, the SQLite ledger. Then waits until every run is
terminal.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		providers, err := selectedProviders()
		if err != nil {
			return err
		}

		app, err := wire(providers, "")
		if err != nil {
			return err
		}
		defer app.Close()

		_, err = app.benchmarks.Run(cmd.Context(), cfg.Target())
		return err
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the CSV report from previously recorded run IDs",
	Long: `Loads run IDs from GITHUB_BENCHMARK_WORKFLOW_RUN_IDS and
CIRCLECI_BENCHMARK_WORKFLOW_RUN_IDS (or $GITHUB_ENV, or the SQLite ledger),
fetches each run's jobs and writes the normalized step timings.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		providers, err := selectedProviders()
		if err != nil {
			return err
		}

		app, err := wire(providers, outputPath)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.reports.Generate(cmd.Context(), cfg.Target(), providers); err != nil {
			return err
		}
		slog.Info("report written", "path", app.output)
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch, wait and report in one step",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		providers, err := selectedProviders()
		if err != nil {
			return err
		}

		app, err := wire(providers, outputPath)
		if err != nil {
			return err
		}
		defer app.Close()

		results, err := app.benchmarks.Run(cmd.Context(), cfg.Target())
		if err != nil {
			return err
		}

		ids := make(map[model.Provider][]model.RunID, len(results))
		for _, c := range results {
			ids[c.Provider] = c.RunIDs()
		}

		rows, err := app.reports.Build(cmd.Context(), cfg.Target(), ids)
		if err != nil {
			return err
		}
		if err := app.writer.WriteRows(cmd.Context(), rows); err != nil {
			return err
		}

		slog.Info("report written", "path", app.output, "rows", len(rows))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the runs recorded in the SQLite ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StateDBPath == "" {
			return fmt.Errorf("CIBENCH_STATE_DB is not set; no ledger to read")
		}

		providers, err := selectedProviders()
		if err != nil {
			return err
		}

		ledger, err := openLedger(cfg.StateDBPath)
		if err != nil {
			return err
		}
		defer closeLedger(ledger)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tRUN ID\tWORKFLOW\tSTATUS\tOUTCOME\tDISPATCHED")

		for _, p := range providers {
			c, err := ledger.runs.Correlation(cmd.Context(), p)
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			for _, h := range c.Handles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					p.DisplayName(), h.RunID, h.DisplayName, h.Status, h.Outcome, c.WindowStart.Local().Format("2006-01-02 15:04:05"))
			}
		}

		return w.Flush()
	},
}

// selectedProviders parses --provider, dropping duplicates and keeping
// report order.
func selectedProviders() ([]model.Provider, error) {
	want := make(map[model.Provider]bool, len(providerNames))
	for _, name := range providerNames {
		p, err := model.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		want[p] = true
	}

	var providers []model.Provider
	for _, p := range model.Providers() {
		if want[p] {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one --provider is required")
	}
	return providers, nil
}
