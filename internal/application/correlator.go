package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Dispatcher triggers a provider's benchmarks and resolves the resulting runs.
type Dispatcher interface {
	Dispatch(ctx context.Context, target model.DispatchTarget) (*model.Correlation, error)
}

// Compile-time interface satisfaction checks.
var (
	_ Dispatcher = (*GitHubCorrelator)(nil)
	_ Dispatcher = (*CircleCICorrelator)(nil)
)

// GitHubCorrelator dispatches every benchmark workflow file and matches the
// resulting runs by display name. GitHub does not return a run ID when a
// workflow is dispatched, so runs are discovered by listing workflow_dispatch
// runs created since just before the first dispatch.
type GitHubCorrelator struct {
	client    driven.GitHubDispatcher
	workflows driven.WorkflowSource
	interval  time.Duration
	timeout   time.Duration
	now       func() time.Time
}

// NewGitHubCorrelator creates a GitHubCorrelator. A zero timeout waits
// indefinitely for runs to appear.
func NewGitHubCorrelator(client driven.GitHubDispatcher, workflows driven.WorkflowSource, interval, timeout time.Duration) *GitHubCorrelator {
	return &GitHubCorrelator{
		client:    client,
		workflows: workflows,
		interval:  interval,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Dispatch triggers every benchmark workflow on target.Ref. The first rejected
// dispatch aborts the batch.
func (c *GitHubCorrelator) Dispatch(ctx context.Context, target model.DispatchTarget) (*model.Correlation, error) {
	files, err := c.workflows.ListBenchmarkWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing benchmark workflows: %w", err)
	}

	window := model.CorrelationWindow{Expected: make([]string, 0, len(files))}
	seen := make(map[string]string, len(files))
	for _, f := range files {
		if other, dup := seen[f.Name]; dup {
			return nil, &model.DataIntegrityError{
				Entity: f.Name,
				Reason: fmt.Sprintf("workflow name shared by %s and %s", other, f.Filename),
			}
		}
		seen[f.Name] = f.Filename
		window.Expected = append(window.Expected, f.Name)
	}

	// Must precede the first dispatch so a fast-starting run is never missed.
	window.Start = c.now().UTC()

	if len(files) == 0 {
		slog.Warn("no benchmark workflows found", "provider", model.ProviderGitHub)
		return &model.Correlation{Provider: model.ProviderGitHub, WindowStart: window.Start}, nil
	}

	for i, f := range files {
		req := model.DispatchRequest{Provider: model.ProviderGitHub, Target: target, Workflow: f.Filename}
		if err := c.client.DispatchWorkflow(ctx, req); err != nil {
			return nil, fmt.Errorf("github batch aborted after %d of %d dispatch(es): %w", i, len(files), err)
		}
		slog.Info("workflow dispatched", "provider", model.ProviderGitHub, "workflow", f.Filename, "ref", target.Ref)
	}

	ids, err := c.resolve(ctx, target, window)
	if err != nil {
		return nil, err
	}

	corr := &model.Correlation{Provider: model.ProviderGitHub, WindowStart: window.Start}
	for _, name := range window.Expected {
		corr.Handles = append(corr.Handles, model.RunHandle{
			Provider:    model.ProviderGitHub,
			RunID:       ids[name],
			DisplayName: name,
			Status:      model.RunStatusPending,
		})
	}

	return corr, nil
}

// resolve polls the run listing until every expected name maps to a run ID.
// Names may resolve across several polls; a failed listing is retried on the
// next poll.
func (c *GitHubCorrelator) resolve(ctx context.Context, target model.DispatchTarget, window model.CorrelationWindow) (map[string]model.RunID, error) {
	ctx, cancel := bounded(ctx, c.timeout)
	defer cancel()

	unresolved := make(map[string]struct{}, len(window.Expected))
	for _, name := range window.Expected {
		unresolved[name] = struct{}{}
	}
	resolved := make(map[string]model.RunID, len(window.Expected))

	for poll := 1; ; poll++ {
		runs, err := c.client.ListDispatchedRuns(ctx, target, window.Start)
		if err != nil {
			slog.Warn("listing dispatched runs failed", "provider", model.ProviderGitHub, "poll", poll, "error", err)
		}

		for _, run := range runs {
			if _, ok := unresolved[run.Name]; !ok {
				continue
			}
			resolved[run.Name] = run.ID
			delete(unresolved, run.Name)
			slog.Info("run found", "provider", model.ProviderGitHub, "workflow", run.Name, "run_id", run.ID)
		}

		if len(unresolved) == 0 {
			return resolved, nil
		}

		if err := sleep(ctx, c.interval); err != nil {
			return nil, fmt.Errorf("github correlation: %d of %d run(s) unresolved after %d poll(s): %w",
				len(unresolved), len(window.Expected), poll, err)
		}
	}
}

// CircleCICorrelator triggers one pipeline and waits until every workflow of
// it has an ID.
type CircleCICorrelator struct {
	client   driven.CircleCIDispatcher
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// NewCircleCICorrelator creates a CircleCICorrelator. A zero timeout waits
// indefinitely for workflow IDs.
func NewCircleCICorrelator(client driven.CircleCIDispatcher, interval, timeout time.Duration) *CircleCICorrelator {
	return &CircleCICorrelator{
		client:   client,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Dispatch creates a pipeline on target.Ref and returns its workflows keyed
// by name.
func (c *CircleCICorrelator) Dispatch(ctx context.Context, target model.DispatchTarget) (*model.Correlation, error) {
	start := c.now().UTC()

	pipelineID, err := c.client.TriggerPipeline(ctx, model.DispatchRequest{Provider: model.ProviderCircleCI, Target: target})
	if err != nil {
		return nil, err
	}

	workflows, err := c.awaitWorkflowIDs(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	corr := &model.Correlation{Provider: model.ProviderCircleCI, WindowStart: start}
	for _, w := range workflows {
		corr.Handles = append(corr.Handles, model.RunHandle{
			Provider:    model.ProviderCircleCI,
			RunID:       w.ID,
			DisplayName: w.Name,
			Status:      model.RunStatusPending,
		})
	}

	return corr, nil
}

// awaitWorkflowIDs polls the pipeline's workflows. CircleCI may list
// workflows with empty IDs right after the pipeline is created; that is not
// a resolution.
func (c *CircleCICorrelator) awaitWorkflowIDs(ctx context.Context, pipelineID string) ([]model.RunSummary, error) {
	ctx, cancel := bounded(ctx, c.timeout)
	defer cancel()

	for poll := 1; ; poll++ {
		if err := sleep(ctx, c.interval); err != nil {
			return nil, fmt.Errorf("circleci correlation of pipeline %s after %d poll(s): %w", pipelineID, poll-1, err)
		}

		workflows, err := c.client.ListPipelineWorkflows(ctx, pipelineID)
		if err != nil {
			slog.Warn("listing pipeline workflows failed", "provider", model.ProviderCircleCI, "pipeline_id", pipelineID, "poll", poll, "error", err)
			continue
		}

		if allIDsSet(workflows) {
			slog.Info("pipeline workflows resolved", "provider", model.ProviderCircleCI, "pipeline_id", pipelineID,
				"run_ids", model.JoinRunIDs(summaryIDs(workflows)))
			return workflows, nil
		}

		slog.Debug("pipeline workflows not ready", "pipeline_id", pipelineID, "poll", poll, "listed", len(workflows))
	}
}

func allIDsSet(workflows []model.RunSummary) bool {
	if len(workflows) == 0 {
		return false
	}
	for _, w := range workflows {
		if w.ID == "" {
			return false
		}
	}
	return true
}

func summaryIDs(workflows []model.RunSummary) []model.RunID {
	ids := make([]model.RunID, 0, len(workflows))
	for _, w := range workflows {
		ids = append(ids, w.ID)
	}
	return ids
}
