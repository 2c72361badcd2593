package model

// Fixed labels written to the report.
const (
	BenchmarkedStepName = "Benchmarked application build"

	GitHubSetupInfo   = "GitHub Step"
	CircleCISetupInfo = "CircleCI machine setup step"
)

// ReportHeader is the fixed column header of the CSV report.
var ReportHeader = []string{
	"CI Provider",
	"Runner OS",
	"Runner cores/type",
	"Repository tested",
	"Step",
	"Time spent (sec)",
	"Additional infos",
}

// CanonicalRow is one (job, step category) line of the report.
type CanonicalRow struct {
	CIProvider       string
	RunnerOS         string
	RunnerCores      int
	TestedRepository string
	StepName         string
	DurationSeconds  int64 // Always >= 0.
	AdditionalInfo   string
}

// JobNameInfo is the parsed form of a GitHub benchmark job name.
type JobNameInfo struct {
	TestedRepository string
	RunnerOS         string
	RunnerCores      int
	AdditionalInfo   string
}
