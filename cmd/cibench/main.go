// Package main provides the cibench CLI, which dispatches CI benchmark
// workflows, waits for them to finish and writes their step timings as CSV.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/cibench/internal/config"
	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/logging"
)

var (
	// Loaded once before any subcommand runs.
	cfg *config.Config

	providerNames []string
	outputPath    string
)

var rootCmd = &cobra.Command{
	Use:   "cibench",
	Short: "Benchmark CI providers by dispatching workflows and collecting step timings",
	Long: `cibench triggers the benchmark workflows of a repository on GitHub Actions
and CircleCI, resolves the runs they start, waits for them to finish and
normalizes their step timings into a semicolon-separated CSV report.

Configuration is read from the environment (and a .env file if present).
GITHUB_REPOSITORY selects the repository; GH_TOKEN and CIRCLE_TOKEN
authenticate against each provider.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logging.Init(logging.ParseLevel(cfg.LogLevel))

		slog.Debug("config loaded",
			"repo", cfg.Target().FullName(),
			"ref", cfg.DispatchRef,
			"workflows_dir", cfg.WorkflowsDir,
			"state_db", cfg.StateDBPath,
			"poll_interval", cfg.PollInterval,
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&providerNames, "provider", "p",
		[]string{string(model.ProviderGitHub), string(model.ProviderCircleCI)},
		"CI provider to benchmark (github, circleci); repeatable")

	reportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "CSV output path (default $CIBENCH_OUTPUT or benchmark_data.csv)")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "CSV output path (default $CIBENCH_OUTPUT or benchmark_data.csv)")

	rootCmd.AddCommand(dispatchCmd, reportCmd, runCmd, statusCmd)
}

func main() {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}
