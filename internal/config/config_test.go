package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// allConfigKeys lists every env var that Load() reads.
var allConfigKeys = []string{
	"GITHUB_REPOSITORY",
	"WORKFLOW_DISPATCH_REF",
	"GH_TOKEN",
	"CIRCLE_TOKEN",
	"GITHUB_API_URL",
	"GITHUB_ENV",
	"CIBENCH_WORKFLOWS_DIR",
	"CIBENCH_OUTPUT",
	"CIBENCH_STATE_DB",
	"CIBENCH_LOG_LEVEL",
	"CIBENCH_CORRELATION_INTERVAL",
	"CIBENCH_POLL_INTERVAL",
	"CIBENCH_CORRELATION_TIMEOUT",
	"CIBENCH_POLL_TIMEOUT",
	"CIBENCH_CIRCLECI_RPS",
}

// isolateConfigEnv saves and unsets all config env vars so tests don't
// inherit values from the host environment (e.g. a GitHub Actions runner).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/bench")
	t.Setenv("WORKFLOW_DISPATCH_REF", "release")
	t.Setenv("GH_TOKEN", "ghp_test123")
	t.Setenv("CIRCLE_TOKEN", "cci_test")
	t.Setenv("GITHUB_ENV", "/tmp/github_env")
	t.Setenv("CIBENCH_WORKFLOWS_DIR", "/repo/.github/workflows")
	t.Setenv("CIBENCH_OUTPUT", "/tmp/out.csv")
	t.Setenv("CIBENCH_STATE_DB", "/tmp/state.db")
	t.Setenv("CIBENCH_LOG_LEVEL", "debug")
	t.Setenv("CIBENCH_CORRELATION_INTERVAL", "500ms")
	t.Setenv("CIBENCH_POLL_INTERVAL", "30s")
	t.Setenv("CIBENCH_CORRELATION_TIMEOUT", "5m")
	t.Setenv("CIBENCH_POLL_TIMEOUT", "2h")
	t.Setenv("CIBENCH_CIRCLECI_RPS", "5")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, model.DispatchTarget{Owner: "acme", Repo: "bench", Ref: "release"}, cfg.Target())
	assert.Equal(t, "ghp_test123", cfg.Token(model.ProviderGitHub))
	assert.Equal(t, "cci_test", cfg.Token(model.ProviderCircleCI))
	assert.Equal(t, "/tmp/github_env", cfg.EnvFile)
	assert.Equal(t, "/repo/.github/workflows", cfg.WorkflowsDir)
	assert.Equal(t, "/tmp/out.csv", cfg.OutputPath)
	assert.Equal(t, "/tmp/state.db", cfg.StateDBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.CorrelationInterval)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.CorrelationTimeout)
	assert.Equal(t, 2*time.Hour, cfg.PollTimeout)
	assert.Equal(t, 5, cfg.CircleCIRPS)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/bench")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "main", cfg.DispatchRef)
	assert.Equal(t, ".github/workflows", cfg.WorkflowsDir)
	assert.Equal(t, "benchmark_data.csv", cfg.OutputPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.CorrelationInterval)
	assert.Equal(t, 60*time.Second, cfg.PollInterval)
	assert.Zero(t, cfg.CorrelationTimeout)
	assert.Zero(t, cfg.PollTimeout)
	assert.Zero(t, cfg.CircleCIRPS)
	assert.Empty(t, cfg.StateDBPath)
	assert.Empty(t, cfg.EnvFile)
}

func TestLoad_MissingRepository(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_REPOSITORY")
}

func TestLoad_InvalidRepository(t *testing.T) {
	for _, slug := range []string{"acme", "acme/", "/bench", "acme/bench/extra"} {
		t.Run(slug, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("GITHUB_REPOSITORY", slug)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), "owner/repo")
		})
	}
}

func TestParseRepository(t *testing.T) {
	owner, repo, err := ParseRepository("acme/bench")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "bench", repo)

	_, _, err = ParseRepository("acme/bench/extra")
	assert.Error(t, err)
}

func TestLoad_GitHubAPIURL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/bench")
	t.Setenv("GITHUB_API_URL", "https://ghe.example.com/api/v3")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://ghe.example.com/api/v3", cfg.GitHubAPIURL)
}

func TestLoad_InvalidDurations(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"CIBENCH_POLL_INTERVAL", "soon"},
		{"CIBENCH_POLL_INTERVAL", "0s"},
		{"CIBENCH_CORRELATION_INTERVAL", "-1s"},
		{"CIBENCH_POLL_TIMEOUT", "-5m"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("GITHUB_REPOSITORY", "acme/bench")
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_ZeroTimeoutMeansUnbounded(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/bench")
	t.Setenv("CIBENCH_POLL_TIMEOUT", "0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Zero(t, cfg.PollTimeout)
}

func TestLoad_InvalidRPS(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("GITHUB_REPOSITORY", "acme/bench")
	t.Setenv("CIBENCH_CIRCLECI_RPS", "-2")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIBENCH_CIRCLECI_RPS")
}

func TestRequireTokens(t *testing.T) {
	cfg := &Config{GitHubToken: "ghp"}

	assert.NoError(t, cfg.RequireTokens([]model.Provider{model.ProviderGitHub}))

	err := cfg.RequireTokens(model.Providers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIRCLE_TOKEN")
}
