package application

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

const jobNameSeparator = " - "

var (
	coresSuffix  = regexp.MustCompile(`-\d+-cores$`)
	leadingCount = regexp.MustCompile(`^\s*(\d+)`)
)

// SplitGitHubJobName splits a benchmark job name into its 3 or 4 fields:
// repository, runner OS, cores and optional additional info. Only the first
// three separators split, so the additional info may itself contain " - ".
func SplitGitHubJobName(name string) ([]string, error) {
	fields := strings.SplitN(name, jobNameSeparator, 4)
	if len(fields) < 3 {
		return nil, &model.DataIntegrityError{
			Entity: name,
			Reason: fmt.Sprintf("job name has %d %q-separated field(s), want 3 or 4", len(fields), jobNameSeparator),
		}
	}
	return fields, nil
}

// ParseGitHubJobName extracts the report columns encoded in a job name such as
// "myrepo - ubuntu-22.04-4-cores - 4 cores - extra info".
func ParseGitHubJobName(name string) (model.JobNameInfo, error) {
	fields, err := SplitGitHubJobName(name)
	if err != nil {
		return model.JobNameInfo{}, err
	}

	m := leadingCount.FindStringSubmatch(fields[2])
	if m == nil {
		return model.JobNameInfo{}, &model.DataIntegrityError{
			Entity: name,
			Reason: fmt.Sprintf("cores field %q does not start with a number", fields[2]),
		}
	}
	cores, err := strconv.Atoi(m[1])
	if err != nil {
		return model.JobNameInfo{}, &model.DataIntegrityError{Entity: name, Reason: err.Error()}
	}

	info := model.JobNameInfo{
		TestedRepository: fields[0],
		RunnerOS:         coresSuffix.ReplaceAllString(fields[1], ""),
		RunnerCores:      cores,
	}
	if len(fields) == 4 {
		info.AdditionalInfo = fields[3]
	}

	return info, nil
}
