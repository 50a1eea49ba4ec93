package domain

import "context"

// CommitStore reads and writes normalized commits
type CommitStore interface {
	GetCommit(ctx context.Context, integrationID, repoID, sha string) (Commit, bool, error)
	InsertCommit(ctx context.Context, c Commit) error
	// UpdateBranch rewrites only the branch and pushed-at fields
	UpdateBranch(ctx context.Context, integrationID, repoID, sha, branch string, pushedAt int64) error
	// UpdateStats backfills change-volume counters
	UpdateStats(ctx context.Context, integrationID, repoID, sha string, additions, deletions, changes int) error
	SetDirectMerge(ctx context.Context, integrationID, repoID, sha string, direct bool) error
}

// PRStore reads and writes normalized pull requests
type PRStore interface {
	GetPR(ctx context.Context, integrationID, repoID string, number int) (PullRequest, bool, error)
	UpsertPR(ctx context.Context, pr PullRequest) error
	// SyncLabels refreshes only the label set of a stored PR
	SyncLabels(ctx context.Context, integrationID, repoID string, number int, labels []string) error
	// CountPRsReferencing counts stored PRs whose merge commit is sha
	CountPRsReferencing(ctx context.Context, integrationID, repoID, sha string) (int, error)
}

// ProcessorPort is the scm ingestion entrypoint
type ProcessorPort interface {
	ProcessCommits(ctx context.Context, tenant string, push PushEvent) ProcessingStatus
	ProcessPullRequest(ctx context.Context, tenant string, pr PullRequest) ProcessingStatus
}
