package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// GitHubDispatcher defines the driven port for triggering GitHub Actions
// workflows and discovering the runs they produce.
type GitHubDispatcher interface {
	// DispatchWorkflow sends a workflow_dispatch event for one workflow file.
	// A rejected dispatch returns *model.DispatchError.
	DispatchWorkflow(ctx context.Context, req model.DispatchRequest) error
	// ListDispatchedRuns returns workflow_dispatch runs created at or after since.
	ListDispatchedRuns(ctx context.Context, target model.DispatchTarget, since time.Time) ([]model.RunSummary, error)
}
