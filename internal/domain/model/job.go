package model

import "time"

// JobPayload is the provider-native detail of one finished job. Kind selects
// which of GitHub or CircleCI is populated.
type JobPayload struct {
	Kind     PayloadKind
	GitHub   *GitHubJob
	CircleCI *CircleCIJob
}

// GitHubJob is a GitHub Actions job with its timed steps.
type GitHubJob struct {
	ID     int64
	Name   string // "<repo> - <runner os> - <cores> [- <additional infos>]"
	Labels []string
	Steps  []GitHubStep
}

// GitHubStep is one step of a GitHub Actions job.
type GitHubStep struct {
	Name        string
	StartedAt   time.Time
	CompletedAt time.Time
}

// CircleCIJob is the v1.1 job detail CircleCI exposes for step timing.
type CircleCIJob struct {
	JobNumber     int
	WorkflowName  string // "Benchmark <repo>"
	JobName       string
	ResourceCPU   int
	ResourceClass string
	ConfigYAML    string // circle_yml.string, the compiled pipeline config.
	Steps         []CircleCIStep
}

// CircleCIStep is one step of a CircleCI job. RunTimeMillis is taken from the
// step's first action.
type CircleCIStep struct {
	Name          string
	RunTimeMillis int64
}

// StepRecord is the provider-neutral input of step aggregation.
type StepRecord struct {
	Name     string
	Duration time.Duration
}

// WorkflowFile is a benchmark workflow definition discovered on disk.
type WorkflowFile struct {
	Filename   string // e.g. "benchmark_fastapi.yml"
	Name       string // top-level "name:" of the workflow, also the run display name
	Definition *WorkflowDefinition
}

// WorkflowDefinition is the subset of a GitHub workflow file used to map a
// job name back to the job that produced it.
type WorkflowDefinition struct {
	Jobs map[string]WorkflowJobDef
}

// WorkflowJobDef is one entry of a workflow's "jobs:" map.
type WorkflowJobDef struct {
	Name        string   // May contain "${{ matrix.name }}".
	MatrixNames []string // strategy.matrix.include[].name
}
