// Package repo provides Postgres bindings for the scm aggregation ports
package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"aggbridge/internal/modkit/repokit"
	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/platform/store"
	pstrings "aggbridge/internal/platform/strings"
	"aggbridge/internal/services/scmagg/domain"
)

// Storage is the full persistence surface of the scm aggregation service
type Storage interface {
	domain.CommitStore
	domain.PRStore
}

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(r repokit.TxRunner) Storage { return &pgq{r: r} }

// pgq runs each operation in its own transaction so per-tx begin hooks
// (tenant scoping) apply to every statement it issues
type pgq struct{ r repokit.TxRunner }

var _ Storage = (*pgq)(nil)

// GetCommit implements domain.CommitStore
func (s *pgq) GetCommit(ctx context.Context, integrationID, repoID, sha string) (c domain.Commit, found bool, err error) {
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		err := q.QueryRow(ctx, `
			SELECT sha, repo_id, integration_id, provider, branch, message,
			       author_name, author_email, committed_at, pushed_at,
			       additions, deletions, changes, direct_merge
			FROM scm_commits
			WHERE integration_id = $1 AND repo_id = $2 AND sha = $3
		`, integrationID, repoID, sha).Scan(
			&c.SHA, &c.RepoID, &c.IntegrationID, &c.Provider, &c.Branch, &c.Message,
			&c.AuthorName, &c.AuthorEmail, &c.CommittedAt, &c.PushedAt,
			&c.Additions, &c.Deletions, &c.Changes, &c.DirectMerge,
		)
		if err != nil {
			if isNoRows(err) {
				return nil
			}
			return perr.FromPostgresf(err, "get commit %s", sha)
		}
		found = true
		return nil
	})
	return c, found, err
}

// InsertCommit implements domain.CommitStore
// ON CONFLICT DO NOTHING keeps concurrent first-writers race safe
func (s *pgq) InsertCommit(ctx context.Context, c domain.Commit) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			INSERT INTO scm_commits (
				sha, repo_id, integration_id, provider, branch, message,
				author_name, author_email, committed_at, pushed_at,
				additions, deletions, changes, direct_merge
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (integration_id, repo_id, sha) DO NOTHING
		`,
			c.SHA, c.RepoID, c.IntegrationID, c.Provider, c.Branch, c.Message,
			c.AuthorName, c.AuthorEmail, c.CommittedAt, c.PushedAt,
			c.Additions, c.Deletions, c.Changes, c.DirectMerge,
		)
		if err != nil {
			return perr.FromPostgresf(err, "insert commit %s", c.SHA)
		}
		return nil
	})
}

// UpdateBranch implements domain.CommitStore
func (s *pgq) UpdateBranch(ctx context.Context, integrationID, repoID, sha, branch string, pushedAt int64) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			UPDATE scm_commits
			SET branch = $4, pushed_at = $5
			WHERE integration_id = $1 AND repo_id = $2 AND sha = $3
		`, integrationID, repoID, sha, branch, pushedAt)
		if err != nil {
			return perr.FromPostgresf(err, "update branch %s", sha)
		}
		return nil
	})
}

// UpdateStats implements domain.CommitStore
func (s *pgq) UpdateStats(ctx context.Context, integrationID, repoID, sha string, additions, deletions, changes int) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			UPDATE scm_commits
			SET additions = $4, deletions = $5, changes = $6
			WHERE integration_id = $1 AND repo_id = $2 AND sha = $3
		`, integrationID, repoID, sha, additions, deletions, changes)
		if err != nil {
			return perr.FromPostgresf(err, "update stats %s", sha)
		}
		return nil
	})
}

// SetDirectMerge implements domain.CommitStore
func (s *pgq) SetDirectMerge(ctx context.Context, integrationID, repoID, sha string, direct bool) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			UPDATE scm_commits
			SET direct_merge = $4
			WHERE integration_id = $1 AND repo_id = $2 AND sha = $3
		`, integrationID, repoID, sha, direct)
		if err != nil {
			return perr.FromPostgresf(err, "set direct merge %s", sha)
		}
		return nil
	})
}

// GetPR implements domain.PRStore
func (s *pgq) GetPR(ctx context.Context, integrationID, repoID string, number int) (p domain.PullRequest, found bool, err error) {
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		var sha *string
		err := q.QueryRow(ctx, `
			SELECT number, repo_id, integration_id, provider, title, state,
			       source_branch, target_branch, labels, reviews,
			       created_at, updated_at, merged_at, merge_commit_sha
			FROM scm_pull_requests
			WHERE integration_id = $1 AND repo_id = $2 AND number = $3
		`, integrationID, repoID, number).Scan(
			&p.Number, &p.RepoID, &p.IntegrationID, &p.Provider, &p.Title, &p.State,
			&p.SourceBranch, &p.TargetBranch, &p.Labels, &p.Reviews,
			&p.CreatedAt, &p.UpdatedAt, &p.MergedAt, &sha,
		)
		if err != nil {
			if isNoRows(err) {
				return nil
			}
			return perr.FromPostgresf(err, "get pr %d", number)
		}
		p.MergeCommitSHA = pstrings.Deref(sha)
		found = true
		return nil
	})
	return p, found, err
}

// UpsertPR implements domain.PRStore
func (s *pgq) UpsertPR(ctx context.Context, pr domain.PullRequest) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			INSERT INTO scm_pull_requests (
				number, repo_id, integration_id, provider, title, state,
				source_branch, target_branch, labels, reviews,
				created_at, updated_at, merged_at, merge_commit_sha
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (integration_id, repo_id, number) DO UPDATE SET
				title            = EXCLUDED.title,
				state            = EXCLUDED.state,
				source_branch    = EXCLUDED.source_branch,
				target_branch    = EXCLUDED.target_branch,
				labels           = EXCLUDED.labels,
				reviews          = EXCLUDED.reviews,
				updated_at       = EXCLUDED.updated_at,
				merged_at        = EXCLUDED.merged_at,
				merge_commit_sha = EXCLUDED.merge_commit_sha
		`,
			pr.Number, pr.RepoID, pr.IntegrationID, pr.Provider, pr.Title, pr.State,
			pr.SourceBranch, pr.TargetBranch, pr.Labels, pr.Reviews,
			pr.CreatedAt, pr.UpdatedAt, pr.MergedAt, pstrings.SQLNull(pr.MergeCommitSHA),
		)
		if err != nil {
			return perr.FromPostgresf(err, "upsert pr %d", pr.Number)
		}
		return nil
	})
}

// SyncLabels implements domain.PRStore
func (s *pgq) SyncLabels(ctx context.Context, integrationID, repoID string, number int, labels []string) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			UPDATE scm_pull_requests
			SET labels = $4
			WHERE integration_id = $1 AND repo_id = $2 AND number = $3
		`, integrationID, repoID, number, labels)
		if err != nil {
			return perr.FromPostgresf(err, "sync labels pr %d", number)
		}
		return nil
	})
}

// CountPRsReferencing implements domain.PRStore
func (s *pgq) CountPRsReferencing(ctx context.Context, integrationID, repoID, sha string) (n int, err error) {
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		n, err = store.Scalar[int](ctx, q, `
			SELECT count(*) FROM scm_pull_requests
			WHERE integration_id = $1 AND repo_id = $2 AND merge_commit_sha = $3
		`, integrationID, repoID, sha)
		if err != nil {
			return perr.FromPostgresf(err, "count prs referencing %s", sha)
		}
		return nil
	})
	return n, err
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
