package model

import (
	"strings"
	"time"
)

// RunID identifies a run on its provider. GitHub uses numeric workflow run IDs
// and CircleCI uses workflow UUIDs, so both are carried as strings.
type RunID string

// UnresolvedRunID is the placeholder written in place of a run ID that was never
// resolved. Correlators only emit resolved handles; consumers reject this value
// through Resolved.
const UnresolvedRunID RunID = "-1"

// Resolved reports whether the ID refers to a concrete run.
func (id RunID) Resolved() bool {
	return id != "" && id != UnresolvedRunID
}

// DispatchTarget describes where a batch of workflows is triggered.
type DispatchTarget struct {
	Owner string
	Repo  string
	Ref   string
}

// FullName returns the "owner/repo" slug.
func (t DispatchTarget) FullName() string {
	return t.Owner + "/" + t.Repo
}

// DispatchRequest is one workflow trigger. It is built per call and discarded
// once sent.
type DispatchRequest struct {
	Provider Provider
	Target   DispatchTarget
	Workflow string // Workflow filename (GitHub); empty for a CircleCI pipeline trigger.
}

// CorrelationWindow bounds the runs considered when matching dispatches to run IDs.
// Start is captured before the first dispatch request is sent.
type CorrelationWindow struct {
	Start    time.Time
	Expected []string
}

// RunHandle tracks one dispatched workflow run.
type RunHandle struct {
	Provider    Provider
	RunID       RunID
	DisplayName string
	Status      RunStatus
	Outcome     string // Provider conclusion once terminal (e.g. "success", "failure").
}

// Correlation is the result of dispatching a batch: every expected workflow
// name resolved to a run handle. It is handed explicitly to the poller.
type Correlation struct {
	Provider    Provider
	WindowStart time.Time
	Handles     []RunHandle
}

// RunIDs returns the resolved run IDs in handle order.
func (c *Correlation) RunIDs() []RunID {
	ids := make([]RunID, 0, len(c.Handles))
	for _, h := range c.Handles {
		ids = append(ids, h.RunID)
	}
	return ids
}

// JoinRunIDs renders IDs as the comma-separated form stored in env files.
func JoinRunIDs(ids []RunID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, string(id))
	}
	return strings.Join(parts, ",")
}

// SplitRunIDs parses a comma-separated list, dropping blanks.
func SplitRunIDs(s string) []RunID {
	var ids []RunID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ids = append(ids, RunID(part))
		}
	}
	return ids
}

// RunState is a single status observation returned by a provider.
type RunState struct {
	Terminal bool
	Outcome  string
}

// RunSummary is an entry of a provider's run or workflow listing.
type RunSummary struct {
	ID   RunID
	Name string
}

// RunDetail bundles a finished run with its jobs.
type RunDetail struct {
	Provider Provider
	ID       RunID
	Name     string
	Jobs     []JobPayload
}
