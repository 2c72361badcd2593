package application_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cibench/internal/application"
	"github.com/ericfisherdev/cibench/internal/domain/model"
)

func TestParseGitHubJobName_FourFields(t *testing.T) {
	info, err := application.ParseGitHubJobName("myrepo - ubuntu-22.04-4-cores - 4 cores - extra info")

	require.NoError(t, err)
	assert.Equal(t, model.JobNameInfo{
		TestedRepository: "myrepo",
		RunnerOS:         "ubuntu-22.04",
		RunnerCores:      4,
		AdditionalInfo:   "extra info",
	}, info)
}

func TestParseGitHubJobName_ThreeFields(t *testing.T) {
	info, err := application.ParseGitHubJobName("fastapi - macos-14 - 3 cores")

	require.NoError(t, err)
	assert.Equal(t, "fastapi", info.TestedRepository)
	assert.Equal(t, "macos-14", info.RunnerOS)
	assert.Equal(t, 3, info.RunnerCores)
	assert.Empty(t, info.AdditionalInfo)
}

func TestParseGitHubJobName_AdditionalInfoKeepsSeparators(t *testing.T) {
	info, err := application.ParseGitHubJobName("repo - ubuntu-latest - 2 - cache on - warm - run 2")

	require.NoError(t, err)
	assert.Equal(t, 2, info.RunnerCores)
	assert.Equal(t, "cache on - warm - run 2", info.AdditionalInfo)
}

func TestParseGitHubJobName_OnlyTrailingCoresSuffixStripped(t *testing.T) {
	info, err := application.ParseGitHubJobName("repo - ubuntu-8-cores-arm - 8 cores")

	require.NoError(t, err)
	assert.Equal(t, "ubuntu-8-cores-arm", info.RunnerOS)
}

func TestParseGitHubJobName_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		jobName string
		reason  string
	}{
		{name: "one field", jobName: "build", reason: "field"},
		{name: "two fields", jobName: "repo - ubuntu-22.04", reason: "field"},
		{name: "wrong separator", jobName: "repo-ubuntu-4 cores", reason: "field"},
		{name: "non numeric cores", jobName: "repo - ubuntu-22.04 - many cores", reason: "cores"},
		{name: "machine class instead of cores", jobName: "repo - macos-14 - M1", reason: "cores"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := application.ParseGitHubJobName(tt.jobName)

			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrDataIntegrity))

			var dataErr *model.DataIntegrityError
			require.ErrorAs(t, err, &dataErr)
			assert.Equal(t, tt.jobName, dataErr.Entity)
			assert.Contains(t, dataErr.Reason, tt.reason)
		})
	}
}

func TestSplitGitHubJobName_RoundTrip(t *testing.T) {
	fieldSets := [][]string{
		{"myrepo", "ubuntu-22.04-4-cores", "4 cores"},
		{"myrepo", "ubuntu-22.04-4-cores", "4 cores", "extra info"},
		{"a", "b", "c", "d - e - f"},
		{"react", "windows-2022", "2", ""},
		{"", "", ""},
	}

	for _, fields := range fieldSets {
		name := strings.Join(fields, " - ")
		t.Run(name, func(t *testing.T) {
			got, err := application.SplitGitHubJobName(name)

			require.NoError(t, err)
			assert.Equal(t, fields, got)
			assert.Equal(t, name, strings.Join(got, " - "))
		})
	}
}
