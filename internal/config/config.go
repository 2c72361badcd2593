// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Owner       string
	Repo        string
	DispatchRef string

	GitHubToken   string
	CircleCIToken string
	GitHubAPIURL  string

	EnvFile      string
	WorkflowsDir string
	OutputPath   string
	StateDBPath  string
	LogLevel     string

	CorrelationInterval time.Duration
	CorrelationTimeout  time.Duration
	PollInterval        time.Duration
	PollTimeout         time.Duration

	CircleCIRPS int
}

// Target returns the repository and ref that benchmarks are dispatched on.
func (c *Config) Target() model.DispatchTarget {
	return model.DispatchTarget{Owner: c.Owner, Repo: c.Repo, Ref: c.DispatchRef}
}

// Token returns the API token configured for provider.
func (c *Config) Token(p model.Provider) string {
	switch p {
	case model.ProviderGitHub:
		return c.GitHubToken
	case model.ProviderCircleCI:
		return c.CircleCIToken
	default:
		return ""
	}
}

// RequireTokens fails when any of providers has no token.
func (c *Config) RequireTokens(providers []model.Provider) error {
	for _, p := range providers {
		if c.Token(p) != "" {
			continue
		}
		name := "GH_TOKEN"
		if p == model.ProviderCircleCI {
			name = "CIRCLE_TOKEN"
		}
		return fmt.Errorf("%s is required for provider %s", name, p)
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// GITHUB_REPOSITORY ("owner/repo") is required. Tokens (GH_TOKEN, CIRCLE_TOKEN) are
// checked per command with RequireTokens. Optional variables with defaults:
// WORKFLOW_DISPATCH_REF (main), CIBENCH_WORKFLOWS_DIR (.github/workflows),
// CIBENCH_CORRELATION_INTERVAL (2s), CIBENCH_POLL_INTERVAL (60s),
// CIBENCH_CORRELATION_TIMEOUT and CIBENCH_POLL_TIMEOUT (0, unbounded),
// CIBENCH_OUTPUT (benchmark_data.csv), CIBENCH_LOG_LEVEL (info), CIBENCH_CIRCLECI_RPS (0),
// GITHUB_API_URL (public GitHub API).
func Load() (*Config, error) {
	slug := os.Getenv("GITHUB_REPOSITORY")
	if slug == "" {
		return nil, fmt.Errorf("GITHUB_REPOSITORY is required")
	}
	owner, repo, err := ParseRepository(slug)
	if err != nil {
		return nil, fmt.Errorf("GITHUB_REPOSITORY: %w", err)
	}

	cfg := &Config{
		Owner:         owner,
		Repo:          repo,
		DispatchRef:   envOr("WORKFLOW_DISPATCH_REF", "main"),
		GitHubToken:   os.Getenv("GH_TOKEN"),
		CircleCIToken: os.Getenv("CIRCLE_TOKEN"),
		GitHubAPIURL:  os.Getenv("GITHUB_API_URL"),
		EnvFile:       os.Getenv("GITHUB_ENV"),
		WorkflowsDir:  envOr("CIBENCH_WORKFLOWS_DIR", ".github/workflows"),
		OutputPath:    envOr("CIBENCH_OUTPUT", "benchmark_data.csv"),
		StateDBPath:   os.Getenv("CIBENCH_STATE_DB"),
		LogLevel:      envOr("CIBENCH_LOG_LEVEL", "info"),
	}

	if cfg.CorrelationInterval, err = duration("CIBENCH_CORRELATION_INTERVAL", 2*time.Second, false); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = duration("CIBENCH_POLL_INTERVAL", 60*time.Second, false); err != nil {
		return nil, err
	}
	if cfg.CorrelationTimeout, err = duration("CIBENCH_CORRELATION_TIMEOUT", 0, true); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = duration("CIBENCH_POLL_TIMEOUT", 0, true); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("CIBENCH_CIRCLECI_RPS"); ok && v != "" {
		rps, err := strconv.Atoi(v)
		if err != nil || rps < 0 {
			return nil, fmt.Errorf("CIBENCH_CIRCLECI_RPS must be a non-negative integer, got %q", v)
		}
		cfg.CircleCIRPS = rps
	}

	return cfg, nil
}

// ParseRepository splits an "owner/repo" slug.
func ParseRepository(slug string) (string, string, error) {
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("must be \"owner/repo\", got %q", slug)
	}
	return owner, repo, nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// duration parses key as a time.Duration. Zero is accepted only when allowZero is set.
func duration(key string, def time.Duration, allowZero bool) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}

	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed < 0 || (parsed == 0 && !allowZero) {
		return 0, fmt.Errorf("%s must be positive, got %s", key, parsed)
	}

	return parsed, nil
}
