package model

import "fmt"

// Provider identifies a CI provider under benchmark.
type Provider string

const (
	ProviderGitHub   Provider = "github"
	ProviderCircleCI Provider = "circleci"
)

// DisplayName returns the label used in the report's "CI Provider" column.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderGitHub:
		return "GitHub"
	case ProviderCircleCI:
		return "CircleCI"
	default:
		return string(p)
	}
}

// EnvPrefix returns the prefix of the environment variable holding the
// provider's resolved run IDs.
func (p Provider) EnvPrefix() string {
	switch p {
	case ProviderGitHub:
		return "GITHUB"
	case ProviderCircleCI:
		return "CIRCLECI"
	default:
		return ""
	}
}

// RunIDsEnvVar returns the environment variable that carries the provider's
// comma-separated run IDs between CI jobs.
func (p Provider) RunIDsEnvVar() string {
	return p.EnvPrefix() + "_BENCHMARK_WORKFLOW_RUN_IDS"
}

// ParseProvider converts a provider name such as "github" to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGitHub, ProviderCircleCI:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q (want %s or %s)", s, ProviderGitHub, ProviderCircleCI)
	}
}

// Providers lists every supported provider in report order.
func Providers() []Provider {
	return []Provider{ProviderGitHub, ProviderCircleCI}
}

// RunStatus represents where a tracked run is in its lifecycle.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"  // Run ID resolved; no status observed yet.
	RunStatusRunning  RunStatus = "running"  // Observed and not finished.
	RunStatusTerminal RunStatus = "terminal" // Finished; no further changes expected.
)

// PayloadKind tags which provider shape a JobPayload carries.
type PayloadKind int

const (
	PayloadGitHub PayloadKind = iota
	PayloadCircleCI
)
