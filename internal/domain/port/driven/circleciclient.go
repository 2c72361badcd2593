package driven

import (
	"context"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// CircleCIDispatcher defines the driven port for triggering a CircleCI pipeline
// and listing the workflows it spawns.
type CircleCIDispatcher interface {
	// TriggerPipeline creates a pipeline on the target branch and returns its ID.
	TriggerPipeline(ctx context.Context, req model.DispatchRequest) (string, error)
	// ListPipelineWorkflows returns the pipeline's workflows. IDs may be empty
	// right after creation.
	ListPipelineWorkflows(ctx context.Context, pipelineID string) ([]model.RunSummary, error)
}
