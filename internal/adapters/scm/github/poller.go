// Package github polls the GitHub REST API and maps commits and pull
// requests into the normalized scm model.
package github

import (
	"context"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/platform/logger"
	ptime "aggbridge/internal/platform/time"
	"aggbridge/internal/services/scmagg/domain"
)

// Config for the GitHub poller
type Config struct {
	Token         string
	Owner         string
	Repo          string
	IntegrationID string
	Branch        string
	Since         time.Time
	PerPage       int
}

// Poller lists commits and pull requests for one repository
type Poller struct {
	client *github.Client
	cfg    Config
}

// New constructs a Poller with a static token source
func New(ctx context.Context, cfg Config) *Poller {
	if cfg.PerPage <= 0 {
		cfg.PerPage = 100
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	return &Poller{client: github.NewClient(tc), cfg: cfg}
}

// repoID is the stable identifier stored against every row
func (p *Poller) repoID() string { return p.cfg.Owner + "/" + p.cfg.Repo }

// Commits lists the repo's commits since the configured watermark as one
// push event per page
func (p *Poller) Commits(ctx context.Context, fn func(domain.PushEvent) error) error {
	log := logger.Named("github").With().Str("repo", p.repoID()).Logger()

	opts := &github.CommitsListOptions{
		SHA:         p.cfg.Branch,
		Since:       p.cfg.Since,
		ListOptions: github.ListOptions{PerPage: p.cfg.PerPage},
	}
	for {
		commits, resp, err := p.client.Repositories.ListCommits(ctx, p.cfg.Owner, p.cfg.Repo, opts)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "list commits %s", p.repoID())
		}

		// no push timestamp exists on the list API; each commit carries its
		// committer date instead, so re-polling the same page is idempotent
		push := domain.PushEvent{
			RepoID:        p.repoID(),
			IntegrationID: p.cfg.IntegrationID,
			Provider:      domain.ProviderGitHub,
			Branch:        p.cfg.Branch,
		}
		for _, rc := range commits {
			push.Commits = append(push.Commits, mapCommit(rc, p.cfg.Branch))
		}
		if err := fn(push); err != nil {
			return err
		}

		log.Debug().Int("page", opts.Page).Int("commits", len(commits)).Msg("commit page processed")
		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// PullRequests lists the repo's pull requests, newest first
func (p *Poller) PullRequests(ctx context.Context, fn func(domain.PullRequest) error) error {
	log := logger.Named("github").With().Str("repo", p.repoID()).Logger()

	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: p.cfg.PerPage},
	}
	for {
		prs, resp, err := p.client.PullRequests.List(ctx, p.cfg.Owner, p.cfg.Repo, opts)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "list pulls %s", p.repoID())
		}

		for _, rp := range prs {
			if err := fn(p.mapPR(rp)); err != nil {
				return err
			}
		}

		log.Debug().Int("page", opts.Page).Int("prs", len(prs)).Msg("pr page processed")
		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

func mapCommit(rc *github.RepositoryCommit, branch string) domain.Commit {
	c := domain.Commit{
		SHA:      rc.GetSHA(),
		Provider: domain.ProviderGitHub,
		Branch:   branch,
	}
	if gc := rc.GetCommit(); gc != nil {
		c.Message = gc.GetMessage()
		if a := gc.GetAuthor(); a != nil {
			c.AuthorName = a.GetName()
			c.AuthorEmail = a.GetEmail()
			c.CommittedAt = a.GetDate().Unix()
		}
		if cm := gc.GetCommitter(); cm != nil && !cm.GetDate().IsZero() {
			c.CommittedAt = cm.GetDate().Unix()
		}
	}
	// committer date doubles as the push watermark; a branch move only wins
	// when it carries a genuinely newer date
	c.PushedAt = c.CommittedAt
	if st := rc.GetStats(); st != nil {
		c.Additions = st.GetAdditions()
		c.Deletions = st.GetDeletions()
		c.Changes = st.GetTotal()
	}
	return c
}

func (p *Poller) mapPR(rp *github.PullRequest) domain.PullRequest {
	pr := domain.PullRequest{
		Number:         rp.GetNumber(),
		RepoID:         p.repoID(),
		IntegrationID:  p.cfg.IntegrationID,
		Provider:       domain.ProviderGitHub,
		Title:          rp.GetTitle(),
		State:          rp.GetState(),
		SourceBranch:   rp.GetHead().GetRef(),
		TargetBranch:   rp.GetBase().GetRef(),
		CreatedAt:      rp.GetCreatedAt().Unix(),
		UpdatedAt:      rp.GetUpdatedAt().Unix(),
		MergeCommitSHA: rp.GetMergeCommitSHA(),
	}
	for _, l := range rp.Labels {
		pr.Labels = append(pr.Labels, l.GetName())
	}
	if rp.MergedAt != nil {
		pr.MergedAt = ptime.UnixPtr(rp.GetMergedAt().Time)
	}
	return pr
}
