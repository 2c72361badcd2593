// Package github implements the GitHub Actions ports using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/cibench/internal/adapter/driven/httpretry"
	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.GitHubDispatcher = (*Client)(nil)
	_ driven.RunStatusFetcher = (*Client)(nil)
	_ driven.JobSource        = (*Client)(nil)
)

// createdLayout is the timestamp form GitHub expects in the "created" filter;
// the UTC offset must carry a colon.
const createdLayout = "2006-01-02T15:04:05-07:00"

// Client implements the GitHub driven ports using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  2. revalidation (forces ETag revalidation so polls never read a stale cache entry)
//  3. httpcache (ETag-based conditional request caching; 304s do not count against the rate limit)
//  4. httpretry (exponential backoff on transient network errors)
//  5. bounded base transport (each attempt gives up after httpretry.DefaultAttemptTimeout)
//  6. go-github (GitHub REST API client with token auth)
func NewClient(token string, retryOpts ...httpretry.Option) *Client {
	return &Client{gh: gh.NewClient(newHTTPClient(retryOpts...)).WithAuthToken(token)}
}

// NewClientWithBaseURL creates a Client with the NewClient transport stack
// against another API root, such as GITHUB_API_URL on GitHub Enterprise Server.
func NewClientWithBaseURL(token, baseURL string, retryOpts ...httpretry.Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return newClientAt(newHTTPClient(retryOpts...), baseURL, token)
}

func newHTTPClient(retryOpts ...httpretry.Option) *http.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = httpretry.New(httpretry.BoundedTransport(httpretry.DefaultAttemptTimeout), retryOpts...)
	return github_ratelimit.NewClient(revalidateTransport{next: cacheTransport})
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	return newClientAt(httpClient, baseURL, "")
}

func newClientAt(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// DispatchWorkflow sends a workflow_dispatch event for req.Workflow on req.Target.Ref.
// Any response other than 204 or 201 is returned as *model.DispatchError.
func (c *Client) DispatchWorkflow(ctx context.Context, req model.DispatchRequest) error {
	t := req.Target
	u := fmt.Sprintf("repos/%s/%s/actions/workflows/%s/dispatches", t.Owner, t.Repo, url.PathEscape(req.Workflow))

	httpReq, err := c.gh.NewRequest(http.MethodPost, u, &gh.CreateWorkflowDispatchEventRequest{Ref: t.Ref})
	if err != nil {
		return fmt.Errorf("building dispatch request for %s: %w", req.Workflow, err)
	}

	resp, err := c.gh.Do(ctx, httpReq, nil)
	if err != nil {
		if status, msg, ok := errorStatus(err); ok {
			return &model.DispatchError{
				Provider:   model.ProviderGitHub,
				Workflow:   req.Workflow,
				StatusCode: status,
				Body:       msg,
			}
		}
		return fmt.Errorf("dispatching %s on %s: %w", req.Workflow, t.FullName(), err)
	}

	logRateLimit(resp, t.FullName()+"/dispatches", 0, 0)

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusCreated {
		return &model.DispatchError{
			Provider:   model.ProviderGitHub,
			Workflow:   req.Workflow,
			StatusCode: resp.StatusCode,
			Body:       http.StatusText(resp.StatusCode),
		}
	}

	return nil
}

// ListDispatchedRuns returns workflow_dispatch runs created at or after since.
// It handles pagination automatically.
func (c *Client) ListDispatchedRuns(ctx context.Context, target model.DispatchTarget, since time.Time) ([]model.RunSummary, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Event:   "workflow_dispatch",
		Created: FormatCreatedFilter(since),
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	var all []model.RunSummary

	for {
		runs, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, target.Owner, target.Repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing workflow runs for %s (page %d): %w", target.FullName(), opts.Page, err)
		}

		logRateLimit(resp, target.FullName()+"/runs", opts.Page, len(runs.WorkflowRuns))

		for _, run := range runs.WorkflowRuns {
			all = append(all, model.RunSummary{
				ID:   formatRunID(run.GetID()),
				Name: run.GetName(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchRunState reports whether a workflow run has concluded. A run is
// terminal as soon as GitHub reports a non-null conclusion.
func (c *Client) FetchRunState(ctx context.Context, target model.DispatchTarget, id model.RunID) (model.RunState, error) {
	runID, err := parseRunID(id)
	if err != nil {
		return model.RunState{}, err
	}

	run, resp, err := c.gh.Actions.GetWorkflowRunByID(ctx, target.Owner, target.Repo, runID)
	if err != nil {
		return model.RunState{}, fmt.Errorf("fetching workflow run %s/%d: %w", target.FullName(), runID, err)
	}

	logRateLimit(resp, target.FullName()+"/run", 0, 1)

	return model.RunState{
		Terminal: run.Conclusion != nil,
		Outcome:  run.GetConclusion(),
	}, nil
}

// FetchRunJobs returns the workflow run with every job of its latest attempt.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) FetchRunJobs(ctx context.Context, target model.DispatchTarget, id model.RunID) (*model.RunDetail, error) {
	runID, err := parseRunID(id)
	if err != nil {
		return nil, err
	}

	run, resp, err := c.gh.Actions.GetWorkflowRunByID(ctx, target.Owner, target.Repo, runID)
	if err != nil {
		return nil, fmt.Errorf("fetching workflow run %s/%d: %w", target.FullName(), runID, err)
	}
	logRateLimit(resp, target.FullName()+"/run", 0, 1)

	detail := &model.RunDetail{
		Provider: model.ProviderGitHub,
		ID:       id,
		Name:     run.GetName(),
	}

	opts := &gh.ListWorkflowJobsOptions{
		Filter:      "latest",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	for {
		jobs, resp, err := c.gh.Actions.ListWorkflowJobs(ctx, target.Owner, target.Repo, runID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing jobs for run %s/%d (page %d): %w", target.FullName(), runID, opts.Page, err)
		}

		logRateLimit(resp, target.FullName()+"/jobs", opts.Page, len(jobs.Jobs))

		for _, job := range jobs.Jobs {
			detail.Jobs = append(detail.Jobs, model.JobPayload{
				Kind:   model.PayloadGitHub,
				GitHub: mapWorkflowJob(job),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return detail, nil
}

// FormatCreatedFilter renders the "created" query filter selecting runs
// created at or after since.
func FormatCreatedFilter(since time.Time) string {
	return since.UTC().Format(createdLayout) + "..*"
}

// mapWorkflowJob converts a go-github WorkflowJob to a domain model GitHubJob.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapWorkflowJob(job *gh.WorkflowJob) *model.GitHubJob {
	steps := make([]model.GitHubStep, 0, len(job.Steps))
	for _, s := range job.Steps {
		steps = append(steps, model.GitHubStep{
			Name:        s.GetName(),
			StartedAt:   s.GetStartedAt().Time,
			CompletedAt: s.GetCompletedAt().Time,
		})
	}

	return &model.GitHubJob{
		ID:     job.GetID(),
		Name:   job.GetName(),
		Labels: job.Labels,
		Steps:  steps,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// errorStatus extracts the HTTP status and message from a go-github error.
func errorStatus(err error) (int, string, bool) {
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode, errResp.Message, true
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode, rateErr.Message, true
	}

	return 0, "", false
}

func formatRunID(id int64) model.RunID {
	return model.RunID(strconv.FormatInt(id, 10))
}

func parseRunID(id model.RunID) (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid GitHub run ID %q", id)
	}
	return n, nil
}

// revalidateTransport asks httpcache to revalidate every GET with the origin
// instead of serving an entry that is still fresh by max-age. Polling needs
// current state; an unchanged resource still comes back as a free 304.
type revalidateTransport struct {
	next http.RoundTripper
}

func (t revalidateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.Header.Get("Cache-Control") != "" {
		return t.next.RoundTrip(req)
	}

	r := req.Clone(req.Context())
	r.Header.Set("Cache-Control", "max-age=0")
	return t.next.RoundTrip(r)
}
