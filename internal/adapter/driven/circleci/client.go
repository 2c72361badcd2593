// Package circleci implements the CircleCI ports over the v2 REST API, falling
// back to v1.1 for job details since v2 does not expose step timings.
package circleci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/ericfisherdev/cibench/internal/adapter/driven/httpretry"
	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.CircleCIDispatcher = (*Client)(nil)
	_ driven.RunStatusFetcher   = (*Client)(nil)
	_ driven.JobSource          = (*Client)(nil)
)

const (
	DefaultBaseURL   = "https://circleci.com/api/v2"
	DefaultBaseURLV1 = "https://circleci.com/api/v1.1"

	maxErrorBody = 512
)

// Client is a CircleCI API client authenticated with a personal token.
type Client struct {
	baseURL    string
	baseURLV1  string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryOpts  []httpretry.Option
}

// Option configures Client behavior.
type Option func(*Client)

// WithBaseURLs overrides the v2 and v1.1 API roots.
func WithBaseURLs(v2, v1 string) Option {
	return func(c *Client) {
		c.baseURL = v2
		c.baseURLV1 = v1
	}
}

// WithHTTPClient replaces the default retrying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit caps outgoing requests to rps per second. Zero disables pacing.
func WithRateLimit(rps int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
}

// WithRetry tunes the retry transport. It has no effect together with
// WithHTTPClient.
func WithRetry(opts ...httpretry.Option) Option {
	return func(c *Client) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// New creates a Client whose transport retries transient network errors.
// Each attempt is bounded on its own; the client sets no overall timeout, so
// retries run to exhaustion.
func New(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		baseURLV1: DefaultBaseURLV1,
		token:     token,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: httpretry.New(httpretry.BoundedTransport(httpretry.DefaultAttemptTimeout), c.retryOpts...),
		}
	}
	return c
}

type pipelineResponse struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
}

type workflowItem struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	StoppedAt *string `json:"stopped_at"`
}

type workflowList struct {
	Items         []workflowItem `json:"items"`
	NextPageToken string         `json:"next_page_token"`
}

type workflowJob struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	JobNumber *int   `json:"job_number"`
	Type      string `json:"type"`
}

type workflowJobList struct {
	Items         []workflowJob `json:"items"`
	NextPageToken string        `json:"next_page_token"`
}

// jobDetails is the subset of the v1.1 single-job response that carries timings.
type jobDetails struct {
	Steps []struct {
		Name    string `json:"name"`
		Actions []struct {
			RunTimeMillis int64 `json:"run_time_millis"`
		} `json:"actions"`
	} `json:"steps"`
	CircleYML struct {
		String string `json:"string"`
	} `json:"circle_yml"`
	Picard struct {
		ResourceClass struct {
			Class string `json:"class"`
			CPU   int    `json:"cpu"`
		} `json:"resource_class"`
	} `json:"picard"`
	Workflows struct {
		WorkflowName string `json:"workflow_name"`
		JobName      string `json:"job_name"`
	} `json:"workflows"`
}

// TriggerPipeline creates a pipeline on req.Target.Ref and returns its ID.
// Any status other than 201 is returned as *model.DispatchError.
func (c *Client) TriggerPipeline(ctx context.Context, req model.DispatchRequest) (string, error) {
	t := req.Target
	endpoint := fmt.Sprintf("/project/github/%s/%s/pipeline", url.PathEscape(t.Owner), url.PathEscape(t.Repo))

	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+endpoint, map[string]string{"branch": t.Ref})
	if err != nil {
		return "", fmt.Errorf("triggering pipeline on %s: %w", t.FullName(), err)
	}

	if status != http.StatusCreated {
		return "", &model.DispatchError{
			Provider:   model.ProviderCircleCI,
			Workflow:   "pipeline " + t.FullName() + "@" + t.Ref,
			StatusCode: status,
			Body:       truncate(body),
		}
	}

	var p pipelineResponse
	if err := json.Unmarshal(body, &p); err != nil {
		return "", fmt.Errorf("decoding pipeline response: %w", err)
	}

	slog.Info("circleci pipeline created", "pipeline_id", p.ID, "number", p.Number)
	return p.ID, nil
}

// ListPipelineWorkflows returns every workflow of a pipeline. Right after
// creation some IDs may still be empty.
func (c *Client) ListPipelineWorkflows(ctx context.Context, pipelineID string) ([]model.RunSummary, error) {
	endpoint := "/pipeline/" + url.PathEscape(pipelineID) + "/workflow"

	var all []model.RunSummary
	pageToken := ""

	for {
		var page workflowList
		if err := c.getJSON(ctx, c.baseURL, endpoint, pageToken, &page); err != nil {
			return nil, fmt.Errorf("listing workflows of pipeline %s: %w", pipelineID, err)
		}

		for _, w := range page.Items {
			all = append(all, model.RunSummary{ID: model.RunID(w.ID), Name: w.Name})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return all, nil
}

// FetchRunState reports whether a workflow has stopped.
func (c *Client) FetchRunState(ctx context.Context, _ model.DispatchTarget, id model.RunID) (model.RunState, error) {
	w, err := c.getWorkflow(ctx, id)
	if err != nil {
		return model.RunState{}, err
	}

	state := model.RunState{Terminal: w.StoppedAt != nil}
	if state.Terminal {
		state.Outcome = w.Status
	}
	return state, nil
}

// FetchRunJobs returns a workflow with the v1.1 details of each of its build
// jobs. Approval jobs carry no job number and are skipped.
func (c *Client) FetchRunJobs(ctx context.Context, target model.DispatchTarget, id model.RunID) (*model.RunDetail, error) {
	w, err := c.getWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &model.RunDetail{
		Provider: model.ProviderCircleCI,
		ID:       id,
		Name:     w.Name,
	}

	endpoint := "/workflow/" + url.PathEscape(string(id)) + "/job"
	pageToken := ""

	for {
		var page workflowJobList
		if err := c.getJSON(ctx, c.baseURL, endpoint, pageToken, &page); err != nil {
			return nil, fmt.Errorf("listing jobs of workflow %s: %w", id, err)
		}

		for _, job := range page.Items {
			if job.JobNumber == nil {
				slog.Debug("skipping job without number", "workflow_id", id, "job", job.Name, "type", job.Type)
				continue
			}

			cj, err := c.fetchJobDetails(ctx, target, *job.JobNumber)
			if err != nil {
				return nil, err
			}
			detail.Jobs = append(detail.Jobs, model.JobPayload{
				Kind:     model.PayloadCircleCI,
				CircleCI: cj,
			})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return detail, nil
}

func (c *Client) getWorkflow(ctx context.Context, id model.RunID) (*workflowItem, error) {
	if !id.Resolved() {
		return nil, fmt.Errorf("invalid CircleCI workflow ID %q", id)
	}

	var w workflowItem
	if err := c.getJSON(ctx, c.baseURL, "/workflow/"+url.PathEscape(string(id)), "", &w); err != nil {
		return nil, fmt.Errorf("fetching workflow %s: %w", id, err)
	}
	return &w, nil
}

func (c *Client) fetchJobDetails(ctx context.Context, target model.DispatchTarget, jobNumber int) (*model.CircleCIJob, error) {
	endpoint := fmt.Sprintf("/project/github/%s/%s/%d", url.PathEscape(target.Owner), url.PathEscape(target.Repo), jobNumber)

	var d jobDetails
	if err := c.getJSON(ctx, c.baseURLV1, endpoint, "", &d); err != nil {
		return nil, fmt.Errorf("fetching job %s/%d: %w", target.FullName(), jobNumber, err)
	}

	job := &model.CircleCIJob{
		JobNumber:     jobNumber,
		WorkflowName:  d.Workflows.WorkflowName,
		JobName:       d.Workflows.JobName,
		ResourceCPU:   d.Picard.ResourceClass.CPU,
		ResourceClass: d.Picard.ResourceClass.Class,
		ConfigYAML:    d.CircleYML.String,
		Steps:         make([]model.CircleCIStep, 0, len(d.Steps)),
	}
	for _, s := range d.Steps {
		step := model.CircleCIStep{Name: s.Name}
		if len(s.Actions) > 0 {
			step.RunTimeMillis = s.Actions[0].RunTimeMillis
		}
		job.Steps = append(job.Steps, step)
	}

	return job, nil
}

// getJSON sends a GET and decodes a 2xx body into dest. Non-2xx responses are
// returned as *model.APIError.
func (c *Client) getJSON(ctx context.Context, base, endpoint, pageToken string, dest any) error {
	fullURL := base + endpoint
	if pageToken != "" {
		fullURL += "?" + url.Values{"page-token": {pageToken}}.Encode()
	}

	status, body, err := c.do(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}

	if status < 200 || status >= 300 {
		return &model.APIError{
			Provider:   model.ProviderCircleCI,
			Endpoint:   endpoint,
			StatusCode: status,
			Body:       truncate(body),
		}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decoding %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, fullURL string, payload any) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, err
		}
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Circle-Token", c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", err)
	}

	slog.Debug("circleci api call", "method", method, "url", fullURL, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}
