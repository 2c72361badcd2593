package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// ProviderRun pairs the dispatcher and poller of one provider.
type ProviderRun struct {
	Provider   model.Provider
	Dispatcher Dispatcher
	Poller     *Poller
}

// BenchmarkService dispatches each provider's benchmarks in turn and waits
// for them to finish.
type BenchmarkService struct {
	runs  []ProviderRun
	store driven.RunIDStore
}

// NewBenchmarkService creates a BenchmarkService running providers in the
// given order.
func NewBenchmarkService(store driven.RunIDStore, runs ...ProviderRun) *BenchmarkService {
	return &BenchmarkService{runs: runs, store: store}
}

// Run dispatches, records the run IDs, waits for completion and records the
// outcomes, one provider after the other. It returns the finished correlations.
func (s *BenchmarkService) Run(ctx context.Context, target model.DispatchTarget) ([]*model.Correlation, error) {
	results := make([]*model.Correlation, 0, len(s.runs))

	for _, r := range s.runs {
		slog.Info("dispatching benchmarks", "provider", r.Provider, "repo", target.FullName(), "ref", target.Ref)

		corr, err := r.Dispatcher.Dispatch(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("%s dispatch: %w", r.Provider, err)
		}

		if err := s.store.Save(ctx, corr); err != nil {
			return nil, err
		}

		if len(corr.Handles) == 0 {
			slog.Warn("nothing dispatched", "provider", r.Provider)
			results = append(results, corr)
			continue
		}

		finished, err := r.Poller.AwaitCompletion(ctx, target, corr)
		if err != nil {
			return nil, err
		}

		done := &model.Correlation{
			Provider:    corr.Provider,
			WindowStart: corr.WindowStart,
			Handles:     finished,
		}
		if err := s.store.Save(ctx, done); err != nil {
			return nil, err
		}

		results = append(results, done)
	}

	return results, nil
}
