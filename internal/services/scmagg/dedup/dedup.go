// Package dedup holds the pure decision logic for commit and PR
// deduplication. Decisions are computed against the stored row and applied
// by the service; nothing here touches storage.
package dedup

import (
	"aggbridge/internal/services/scmagg/domain"
)

// CommitAction is the verdict for one incoming commit
type CommitAction int

const (
	// CommitNone leaves the stored row untouched
	CommitNone CommitAction = iota
	// CommitInsert stores the commit for the first time
	CommitInsert
	// CommitSkip drops the commit without storing it
	CommitSkip
	// CommitUpdateBranch rewrites only branch and pushed-at
	CommitUpdateBranch
)

// DecideCommit dedupes one commit against the stored row (nil when absent).
//
// A known SHA may only have its branch moved, and only when the incoming
// push is strictly newer; the same commit appearing on an older branch ref
// must not clobber the stored one. Oversized first-time commits are dropped
// for tenants with the skip-huge flag.
func DecideCommit(stored *domain.Commit, incoming domain.Commit, maxChanges int, skipHuge bool) CommitAction {
	if stored == nil {
		if skipHuge && incoming.ChangeVolume() > maxChanges {
			return CommitSkip
		}
		return CommitInsert
	}
	if incoming.PushedAt > stored.PushedAt {
		return CommitUpdateBranch
	}
	return CommitNone
}

// PRAction is the verdict for one incoming pull request
type PRAction int

const (
	// PRNone leaves the stored row untouched
	PRNone PRAction = iota
	// PRUpsert stores or fully refreshes the PR
	PRUpsert
	// PRSyncLabels refreshes only the label set
	PRSyncLabels
)

// DecidePR dedupes one PR against the stored row (nil when absent).
//
// A timestamp tie normally only syncs labels; with the review-race flag a
// tie plus a strictly greater review count still re-inserts, capturing
// reviews that arrived after the poll that produced the stored row.
func DecidePR(stored *domain.PullRequest, incoming domain.PullRequest, reviewRace bool) PRAction {
	if stored == nil {
		return PRUpsert
	}
	switch {
	case incoming.UpdatedAt > stored.UpdatedAt:
		return PRUpsert
	case incoming.UpdatedAt == stored.UpdatedAt:
		if reviewRace && incoming.Reviews > stored.Reviews {
			return PRUpsert
		}
		return PRSyncLabels
	default:
		return PRNone
	}
}

// SynthesizeMergeCommit builds a commit record from a PR's embedded
// merge-commit payload; ok=false means there is nothing to synthesize.
//
// SHA fallback: merge commit's own SHA, then the PR's mergeCommitSha field.
// Dates chain through committer, author and merged-at, ending at now.
func SynthesizeMergeCommit(pr domain.PullRequest, now func() int64) (domain.Commit, bool) {
	mc := pr.MergeCommit
	if mc == nil {
		mc = &domain.MergeCommit{}
	}

	sha := mc.SHA
	if sha == "" {
		sha = pr.MergeCommitSHA
	}
	if sha == "" {
		return domain.Commit{}, false
	}

	committedAt := int64(0)
	switch {
	case mc.CommitterDate != nil:
		committedAt = *mc.CommitterDate
	case mc.AuthorDate != nil:
		committedAt = *mc.AuthorDate
	case pr.MergedAt != nil:
		committedAt = *pr.MergedAt
	default:
		committedAt = now()
	}

	pushedAt := committedAt
	if pr.MergedAt != nil {
		pushedAt = *pr.MergedAt
	}

	return domain.Commit{
		SHA:           sha,
		RepoID:        pr.RepoID,
		IntegrationID: pr.IntegrationID,
		Provider:      pr.Provider,
		Branch:        pr.TargetBranch,
		Message:       mc.Message,
		CommittedAt:   committedAt,
		PushedAt:      pushedAt,
		Additions:     mc.Additions,
		Deletions:     mc.Deletions,
		Changes:       mc.Changes,
	}, true
}
