package driven

import (
	"context"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// WorkflowSource lists the benchmark workflow definitions to dispatch.
type WorkflowSource interface {
	ListBenchmarkWorkflows(ctx context.Context) ([]model.WorkflowFile, error)
}
