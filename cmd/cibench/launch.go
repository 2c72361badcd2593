package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/cibench/internal/config"
	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
	"github.com/ericfisherdev/cibench/internal/logging"
)

var launchOpts struct {
	repo     string
	ref      string
	tokenEnv string
}

var launchCmd = &cobra.Command{
	Use:   "launch <workflow-file>",
	Short: "Dispatch one workflow file on any repository",
	Long: `Sends a single workflow_dispatch event for a workflow file (for example
build.yml) on owner/repo and exits. It does not wait for the run and records
no run IDs.

The token is read from the environment variable named by --token-env and
needs the actions:write permission.

Example:
  cibench launch build.yml --repo acme/app --ref release --token-env BUILD_TOKEN`,
	Args: cobra.ExactArgs(1),
	// Runs without the benchmark configuration; only the log level applies.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(logging.ParseLevel(os.Getenv("CIBENCH_LOG_LEVEL")))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := launchTarget(launchOpts.repo, launchOpts.ref)
		if err != nil {
			return err
		}

		token := os.Getenv(launchOpts.tokenEnv)
		if token == "" {
			return fmt.Errorf("no GitHub token in environment variable %q", launchOpts.tokenEnv)
		}

		client, err := newGitHubClient(token, os.Getenv("GITHUB_API_URL"))
		if err != nil {
			return err
		}

		return launch(cmd.Context(), client, target, args[0])
	},
}

func init() {
	launchCmd.Flags().StringVar(&launchOpts.repo, "repo", "", `repository as "owner/repo" (default $GITHUB_REPOSITORY)`)
	launchCmd.Flags().StringVar(&launchOpts.ref, "ref", "main", "ref the workflow runs on")
	launchCmd.Flags().StringVarP(&launchOpts.tokenEnv, "token-env", "e", "GH_TOKEN", "environment variable holding the GitHub token")

	rootCmd.AddCommand(launchCmd)
}

// launchTarget resolves --repo, falling back to GITHUB_REPOSITORY.
func launchTarget(repo, ref string) (model.DispatchTarget, error) {
	if repo == "" {
		repo = os.Getenv("GITHUB_REPOSITORY")
	}
	if repo == "" {
		return model.DispatchTarget{}, fmt.Errorf("--repo or GITHUB_REPOSITORY is required")
	}

	owner, name, err := config.ParseRepository(repo)
	if err != nil {
		return model.DispatchTarget{}, fmt.Errorf("--repo: %w", err)
	}

	return model.DispatchTarget{Owner: owner, Repo: name, Ref: ref}, nil
}

// launch dispatches workflow on target. A rejected dispatch is returned as
// *model.DispatchError.
func launch(ctx context.Context, client driven.GitHubDispatcher, target model.DispatchTarget, workflow string) error {
	err := client.DispatchWorkflow(ctx, model.DispatchRequest{
		Provider: model.ProviderGitHub,
		Target:   target,
		Workflow: workflow,
	})
	if err != nil {
		return err
	}

	slog.Info("workflow dispatched", "repo", target.FullName(), "workflow", workflow, "ref", target.Ref)
	return nil
}
