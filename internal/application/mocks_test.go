package application_test

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// --- Mock implementations ---

var errFlaky = errors.New("connection reset by peer")

type dispatchCall struct {
	Req model.DispatchRequest
	At  time.Time
}

type mockGitHubDispatcher struct {
	dispatches  []dispatchCall
	dispatchErr map[string]error
	// listRuns is called once per poll with the 1-based poll number.
	listRuns   func(poll int, since time.Time) ([]model.RunSummary, error)
	listCalls  int
	listSinces []time.Time
}

func (m *mockGitHubDispatcher) DispatchWorkflow(_ context.Context, req model.DispatchRequest) error {
	m.dispatches = append(m.dispatches, dispatchCall{Req: req, At: time.Now()})
	return m.dispatchErr[req.Workflow]
}

func (m *mockGitHubDispatcher) ListDispatchedRuns(_ context.Context, _ model.DispatchTarget, since time.Time) ([]model.RunSummary, error) {
	m.listCalls++
	m.listSinces = append(m.listSinces, since)
	return m.listRuns(m.listCalls, since)
}

type mockCircleCIDispatcher struct {
	pipelineID string
	triggerErr error
	responses  [][]model.RunSummary
	listErrs   map[int]error
	listCalls  int
}

func (m *mockCircleCIDispatcher) TriggerPipeline(_ context.Context, _ model.DispatchRequest) (string, error) {
	return m.pipelineID, m.triggerErr
}

func (m *mockCircleCIDispatcher) ListPipelineWorkflows(_ context.Context, _ string) ([]model.RunSummary, error) {
	m.listCalls++
	if err := m.listErrs[m.listCalls]; err != nil {
		return nil, err
	}
	i := m.listCalls - 1
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

type mockWorkflowSource struct {
	files []model.WorkflowFile
	err   error
}

func (m *mockWorkflowSource) ListBenchmarkWorkflows(_ context.Context) ([]model.WorkflowFile, error) {
	return m.files, m.err
}

// mockStatusFetcher answers with state(id, n) where n is the 1-based number
// of times id has been queried.
type mockStatusFetcher struct {
	state   func(id model.RunID, n int) (model.RunState, error)
	queries map[model.RunID]int
	total   int
}

func (m *mockStatusFetcher) FetchRunState(_ context.Context, _ model.DispatchTarget, id model.RunID) (model.RunState, error) {
	if m.queries == nil {
		m.queries = make(map[model.RunID]int)
	}
	m.queries[id]++
	m.total++
	return m.state(id, m.queries[id])
}

type mockJobSource struct {
	details map[model.RunID]*model.RunDetail
	err     error
	fetched []model.RunID
}

func (m *mockJobSource) FetchRunJobs(_ context.Context, _ model.DispatchTarget, id model.RunID) (*model.RunDetail, error) {
	m.fetched = append(m.fetched, id)
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.details[id]
	if !ok {
		return nil, errors.New("run not found")
	}
	return d, nil
}

type mockRunIDStore struct {
	saved   []*model.Correlation
	ids     map[model.Provider][]model.RunID
	saveErr error
	loadErr error
}

func (m *mockRunIDStore) Save(_ context.Context, c *model.Correlation) error {
	m.saved = append(m.saved, c)
	return m.saveErr
}

func (m *mockRunIDStore) Load(_ context.Context, p model.Provider) ([]model.RunID, error) {
	return m.ids[p], m.loadErr
}

type mockReportWriter struct {
	rows   []model.CanonicalRow
	called bool
}

func (m *mockReportWriter) WriteRows(_ context.Context, rows []model.CanonicalRow) error {
	m.called = true
	m.rows = rows
	return nil
}

var target = model.DispatchTarget{Owner: "acme", Repo: "bench", Ref: "main"}
