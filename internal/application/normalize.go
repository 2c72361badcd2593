package application

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

const (
	cloneStepPrefix      = "Clone "
	circleCIWorkflowName = "Benchmark "
	matrixNameExpr       = "${{ matrix.name }}"
)

var (
	githubSetupSteps   = []string{"Set up job", "Complete job"}
	circleCISetupSteps = []string{"Spin up environment", "Preparing environment variables"}
)

// Normalize converts one finished job into report rows, one per step category
// in order of first occurrence. def is optional; when set, a GitHub job name
// must be producible by one of its jobs.
func Normalize(payload model.JobPayload, def *model.WorkflowDefinition) ([]model.CanonicalRow, error) {
	switch payload.Kind {
	case model.PayloadGitHub:
		if payload.GitHub == nil {
			return nil, fmt.Errorf("github payload has no job")
		}
		return normalizeGitHub(payload.GitHub, def)
	case model.PayloadCircleCI:
		if payload.CircleCI == nil {
			return nil, fmt.Errorf("circleci payload has no job")
		}
		return normalizeCircleCI(payload.CircleCI)
	default:
		return nil, fmt.Errorf("unknown payload kind %d", payload.Kind)
	}
}

func normalizeGitHub(job *model.GitHubJob, def *model.WorkflowDefinition) ([]model.CanonicalRow, error) {
	info, err := ParseGitHubJobName(job.Name)
	if err != nil {
		return nil, err
	}

	if def != nil && !definesJob(def, job.Name) {
		return nil, &model.DataIntegrityError{
			Entity: job.Name,
			Reason: "no job of the workflow definition produces this name",
		}
	}

	records := make([]model.StepRecord, 0, len(job.Steps))
	for _, s := range job.Steps {
		records = append(records, model.StepRecord{
			Name:     s.Name,
			Duration: stepDuration(s.StartedAt, s.CompletedAt),
		})
	}

	totals := aggregate(records, githubSetupSteps)

	rows := make([]model.CanonicalRow, 0, len(totals))
	for _, t := range totals {
		additional := info.AdditionalInfo
		if isSetupStep(t.Name, githubSetupSteps) {
			additional = model.GitHubSetupInfo
		}
		rows = append(rows, model.CanonicalRow{
			CIProvider:       model.ProviderGitHub.DisplayName(),
			RunnerOS:         info.RunnerOS,
			RunnerCores:      info.RunnerCores,
			TestedRepository: info.TestedRepository,
			StepName:         t.Name,
			DurationSeconds:  int64(t.Duration / time.Second),
			AdditionalInfo:   additional,
		})
	}

	return rows, nil
}

func normalizeCircleCI(job *model.CircleCIJob) ([]model.CanonicalRow, error) {
	runnerOS, err := CircleCIRunnerImage(job.ConfigYAML, job.JobName)
	if err != nil {
		return nil, err
	}

	records := make([]model.StepRecord, 0, len(job.Steps))
	for _, s := range job.Steps {
		// Truncated per step, as CircleCI reports milliseconds.
		secs := s.RunTimeMillis / 1000
		if secs < 0 {
			secs = 0
		}
		records = append(records, model.StepRecord{
			Name:     s.Name,
			Duration: time.Duration(secs) * time.Second,
		})
	}

	totals := aggregate(records, circleCISetupSteps)
	repo := strings.TrimPrefix(job.WorkflowName, circleCIWorkflowName)

	rows := make([]model.CanonicalRow, 0, len(totals))
	for _, t := range totals {
		var additional string
		if isSetupStep(t.Name, circleCISetupSteps) {
			additional = model.CircleCISetupInfo
		}
		rows = append(rows, model.CanonicalRow{
			CIProvider:       model.ProviderCircleCI.DisplayName(),
			RunnerOS:         runnerOS,
			RunnerCores:      job.ResourceCPU,
			TestedRepository: repo,
			StepName:         t.Name,
			DurationSeconds:  int64(t.Duration / time.Second),
			AdditionalInfo:   additional,
		})
	}

	return rows, nil
}

// aggregate drops clone steps, folds every step outside setup into the
// benchmarked build category and sums durations per category. Categories keep
// the order of their first occurrence.
func aggregate(records []model.StepRecord, setup []string) []model.StepRecord {
	index := make(map[string]int)
	var totals []model.StepRecord

	for _, r := range records {
		if strings.HasPrefix(r.Name, cloneStepPrefix) {
			continue
		}

		category := model.BenchmarkedStepName
		if isSetupStep(r.Name, setup) {
			category = r.Name
		}

		if i, ok := index[category]; ok {
			totals[i].Duration += r.Duration
			continue
		}
		index[category] = len(totals)
		totals = append(totals, model.StepRecord{Name: category, Duration: r.Duration})
	}

	return totals
}

func isSetupStep(name string, setup []string) bool {
	for _, s := range setup {
		if name == s {
			return true
		}
	}
	return false
}

// stepDuration is zero for steps that never ran (no timestamps).
func stepDuration(started, completed time.Time) time.Duration {
	if started.IsZero() || completed.IsZero() || completed.Before(started) {
		return 0
	}
	return completed.Sub(started)
}

// definesJob reports whether a job of def renders to name, either literally
// or with ${{ matrix.name }} replaced by one of its matrix include names.
func definesJob(def *model.WorkflowDefinition, name string) bool {
	for _, job := range def.Jobs {
		if job.Name == name {
			return true
		}
		for _, m := range job.MatrixNames {
			if strings.ReplaceAll(job.Name, matrixNameExpr, m) == name {
				return true
			}
		}
	}
	return false
}

type circleConfig struct {
	Jobs map[string]struct {
		Machine yaml.Node `yaml:"machine"`
		MacOS   *struct {
			Xcode string `yaml:"xcode"`
		} `yaml:"macos"`
	} `yaml:"jobs"`
}

// CircleCIRunnerImage reads the runner image of jobName from a compiled
// CircleCI config: jobs.<name>.machine.image, or "xcode:<version>" for macOS
// executors.
func CircleCIRunnerImage(configYAML, jobName string) (string, error) {
	var cfg circleConfig
	if err := yaml.Unmarshal([]byte(configYAML), &cfg); err != nil {
		return "", &model.DataIntegrityError{Entity: jobName, Reason: "config YAML does not parse: " + err.Error()}
	}

	job, ok := cfg.Jobs[jobName]
	if !ok {
		return "", &model.DataIntegrityError{Entity: jobName, Reason: "job not found in CircleCI config"}
	}

	if job.Machine.Kind == yaml.MappingNode {
		var machine struct {
			Image string `yaml:"image"`
		}
		if err := job.Machine.Decode(&machine); err == nil && machine.Image != "" {
			return machine.Image, nil
		}
	}

	if job.MacOS != nil && job.MacOS.Xcode != "" {
		return "xcode:" + job.MacOS.Xcode, nil
	}

	return "", &model.DataIntegrityError{Entity: jobName, Reason: "job has neither a machine image nor a macos xcode version"}
}
