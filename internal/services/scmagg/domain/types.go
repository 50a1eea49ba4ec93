// Package domain defines the types and interfaces for the scm aggregation service
package domain

// Providers the pipeline normalizes payloads from
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// Commit is a normalized SCM commit
// identity: (integration, repo, SHA); timestamps are epoch seconds
type Commit struct {
	SHA           string
	RepoID        string
	IntegrationID string
	Provider      string
	Branch        string
	Message       string
	AuthorName    string
	AuthorEmail   string
	CommittedAt   int64
	PushedAt      int64
	Additions     int
	Deletions     int
	Changes       int
	DirectMerge   bool
}

// ChangeVolume is the total number of changed lines and files
func (c Commit) ChangeVolume() int { return c.Additions + c.Deletions + c.Changes }

// HasStats reports whether any change-volume stat is populated
func (c Commit) HasStats() bool { return c.ChangeVolume() > 0 }

// MergeCommit is the merge-commit payload embedded in a PR document
type MergeCommit struct {
	SHA           string
	Message       string
	AuthorDate    *int64
	CommitterDate *int64
	Additions     int
	Deletions     int
	Changes       int
}

// PullRequest is a normalized SCM pull/merge request
// identity: (integration, repo, Number)
type PullRequest struct {
	Number         int
	RepoID         string
	IntegrationID  string
	Provider       string
	Title          string
	State          string
	SourceBranch   string
	TargetBranch   string
	Labels         []string
	Reviews        int
	CreatedAt      int64
	UpdatedAt      int64
	MergedAt       *int64
	MergeCommitSHA string
	MergeCommit    *MergeCommit
}

// PushEvent is one push payload carrying commits for a branch
type PushEvent struct {
	RepoID        string
	IntegrationID string
	Provider      string
	Branch        string
	PushedAt      int64
	Commits       []Commit
}

// StepKind classifies the outcome of one processing sub-step
type StepKind string

const (
	// StepOK means the sub-step completed
	StepOK StepKind = "ok"
	// StepSkipped means the sub-step was not applicable
	StepSkipped StepKind = "skipped"
	// StepFailed means the sub-step errored; the batch continued
	StepFailed StepKind = "failed"
)

// StepResult is the typed outcome of one best-effort sub-step
type StepResult struct {
	Kind StepKind
	Err  error
}

// ProcessingStatus summarizes which phases of one payload succeeded
type ProcessingStatus map[string]StepResult

// Failed reports whether any sub-step errored
func (p ProcessingStatus) Failed() bool {
	for _, r := range p {
		if r.Kind == StepFailed {
			return true
		}
	}
	return false
}

// Processing phase names recorded in ProcessingStatus
const (
	PhaseCommits     = "commits"
	PhaseDirectMerge = "direct_merge"
	PhasePR          = "pull_request"
	PhaseMergeCommit = "merge_commit"
)
