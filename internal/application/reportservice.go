package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// ReportService turns finished runs into report rows.
type ReportService struct {
	sources   map[model.Provider]driven.JobSource
	workflows driven.WorkflowSource
	store     driven.RunIDStore
	writer    driven.ReportWriter
}

// NewReportService creates a ReportService. workflows may be nil, in which
// case GitHub job names are not checked against their workflow files.
func NewReportService(
	sources map[model.Provider]driven.JobSource,
	workflows driven.WorkflowSource,
	store driven.RunIDStore,
	writer driven.ReportWriter,
) *ReportService {
	return &ReportService{
		sources:   sources,
		workflows: workflows,
		store:     store,
		writer:    writer,
	}
}

// Generate loads the stored run IDs of providers, builds the rows and writes
// the report.
func (s *ReportService) Generate(ctx context.Context, target model.DispatchTarget, providers []model.Provider) error {
	ids := make(map[model.Provider][]model.RunID, len(providers))
	for _, p := range providers {
		loaded, err := s.store.Load(ctx, p)
		if err != nil {
			return err
		}
		if len(loaded) == 0 {
			return fmt.Errorf("%s (set %s): %w", p, p.RunIDsEnvVar(), model.ErrNoRunIDs)
		}
		slog.Info("run IDs loaded", "provider", p, "run_ids", model.JoinRunIDs(loaded))
		ids[p] = loaded
	}

	rows, err := s.Build(ctx, target, ids)
	if err != nil {
		return err
	}

	return s.writer.WriteRows(ctx, rows)
}

// Build fetches every run and normalizes its jobs. GitHub rows come first,
// then CircleCI rows, each in run ID order.
func (s *ReportService) Build(ctx context.Context, target model.DispatchTarget, ids map[model.Provider][]model.RunID) ([]model.CanonicalRow, error) {
	var defs map[string]*model.WorkflowDefinition
	if s.workflows != nil && len(ids[model.ProviderGitHub]) > 0 {
		files, err := s.workflows.ListBenchmarkWorkflows(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing benchmark workflows: %w", err)
		}
		defs = make(map[string]*model.WorkflowDefinition, len(files))
		for _, f := range files {
			defs[f.Name] = f.Definition
		}
	}

	var rows []model.CanonicalRow

	for _, p := range model.Providers() {
		runIDs := ids[p]
		if len(runIDs) == 0 {
			continue
		}

		src, ok := s.sources[p]
		if !ok {
			return nil, fmt.Errorf("no job source configured for %s", p)
		}

		for _, id := range runIDs {
			if !id.Resolved() {
				return nil, &model.DataIntegrityError{Entity: string(id), Reason: p.DisplayName() + " run ID was never resolved"}
			}

			detail, err := src.FetchRunJobs(ctx, target, id)
			if err != nil {
				return nil, fmt.Errorf("fetching %s run %s: %w", p, id, err)
			}

			var def *model.WorkflowDefinition
			if p == model.ProviderGitHub && defs != nil {
				d, ok := defs[detail.Name]
				if !ok {
					return nil, &model.DataIntegrityError{Entity: detail.Name, Reason: "no benchmark workflow file declares this name"}
				}
				def = d
			}

			for _, job := range detail.Jobs {
				jobRows, err := Normalize(job, def)
				if err != nil {
					return nil, fmt.Errorf("normalizing %s run %s: %w", p, id, err)
				}
				rows = append(rows, jobRows...)
			}

			slog.Info("run normalized", "provider", p, "run_id", id, "workflow", detail.Name, "jobs", len(detail.Jobs))
		}
	}

	return rows, nil
}
