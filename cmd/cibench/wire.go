package main

import (
	"log/slog"

	circleciadapter "github.com/ericfisherdev/cibench/internal/adapter/driven/circleci"
	"github.com/ericfisherdev/cibench/internal/adapter/driven/csvreport"
	"github.com/ericfisherdev/cibench/internal/adapter/driven/envfile"
	githubadapter "github.com/ericfisherdev/cibench/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/cibench/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/cibench/internal/adapter/driven/workflowfs"
	"github.com/ericfisherdev/cibench/internal/application"
	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// app holds the services of one command invocation.
type app struct {
	benchmarks *application.BenchmarkService
	reports    *application.ReportService
	writer     driven.ReportWriter
	output     string
	ledger     *ledger
}

type ledger struct {
	db   *sqliteadapter.DB
	runs *sqliteadapter.RunRepo
}

func openLedger(path string) (*ledger, error) {
	db, err := sqliteadapter.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("ledger opened", "path", db.Path())
	return &ledger{db: db, runs: sqliteadapter.NewRunRepo(db)}, nil
}

func closeLedger(l *ledger) {
	if err := l.db.Close(); err != nil {
		slog.Error("error closing ledger", "error", err)
	}
}

// Close releases the ledger if one was opened.
func (a *app) Close() {
	if a.ledger != nil {
		closeLedger(a.ledger)
	}
}

// newGitHubClient targets apiURL when set, the public API otherwise.
func newGitHubClient(token, apiURL string) (*githubadapter.Client, error) {
	if apiURL == "" {
		return githubadapter.NewClient(token), nil
	}
	return githubadapter.NewClientWithBaseURL(token, apiURL)
}

// wire builds the adapters and services for providers. output overrides the
// configured CSV path when set.
func wire(providers []model.Provider, output string) (*app, error) {
	if err := cfg.RequireTokens(providers); err != nil {
		return nil, err
	}

	a := &app{output: cfg.OutputPath}
	if output != "" {
		a.output = output
	}

	var stores []driven.RunIDStore
	stores = append(stores, envfile.NewStore(cfg.EnvFile))
	if cfg.StateDBPath != "" {
		l, err := openLedger(cfg.StateDBPath)
		if err != nil {
			return nil, err
		}
		a.ledger = l
		stores = append(stores, l.runs)
	}
	store := application.NewMultiRunIDStore(stores...)

	workflows := workflowfs.NewSource(cfg.WorkflowsDir)
	sources := make(map[model.Provider]driven.JobSource, len(providers))
	var runs []application.ProviderRun

	for _, p := range providers {
		switch p {
		case model.ProviderGitHub:
			client, err := newGitHubClient(cfg.GitHubToken, cfg.GitHubAPIURL)
			if err != nil {
				a.Close()
				return nil, err
			}
			sources[p] = client
			runs = append(runs, application.ProviderRun{
				Provider:   p,
				Dispatcher: application.NewGitHubCorrelator(client, workflows, cfg.CorrelationInterval, cfg.CorrelationTimeout),
				Poller:     application.NewPoller(client, cfg.PollInterval, cfg.PollTimeout),
			})
		case model.ProviderCircleCI:
			client := circleciadapter.New(cfg.CircleCIToken, circleciadapter.WithRateLimit(cfg.CircleCIRPS))
			sources[p] = client
			runs = append(runs, application.ProviderRun{
				Provider:   p,
				Dispatcher: application.NewCircleCICorrelator(client, cfg.CorrelationInterval, cfg.CorrelationTimeout),
				Poller:     application.NewPoller(client, cfg.PollInterval, cfg.PollTimeout),
			})
		}
	}

	a.writer = csvreport.NewWriter(a.output)
	a.benchmarks = application.NewBenchmarkService(store, runs...)
	a.reports = application.NewReportService(sources, workflows, store, a.writer)

	slog.Info("cibench ready", "repo", cfg.Target().FullName(), "ref", cfg.DispatchRef, "providers", providers)
	return a, nil
}
