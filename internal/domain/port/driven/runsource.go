package driven

import (
	"context"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// RunStatusFetcher reports the current state of a single run.
type RunStatusFetcher interface {
	FetchRunState(ctx context.Context, target model.DispatchTarget, id model.RunID) (model.RunState, error)
}

// JobSource retrieves a finished run together with its provider-native job payloads.
type JobSource interface {
	FetchRunJobs(ctx context.Context, target model.DispatchTarget, id model.RunID) (*model.RunDetail, error)
}
