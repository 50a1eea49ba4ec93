// Package service implements the scm commit and PR reconciler
package service

import (
	"context"
	"time"

	dom "aggbridge/internal/services/scmagg/domain"

	"aggbridge/internal/platform/flags"
	"aggbridge/internal/platform/logger"
	"aggbridge/internal/platform/metrics"
	"aggbridge/internal/platform/store"
	"aggbridge/internal/services/scmagg/dedup"
)

// Ports bundles the collaborators the reconciler orchestrates
type Ports struct {
	Commits dom.CommitStore
	PRs     dom.PRStore
}

// Service implements domain.ProcessorPort
type Service struct {
	ports       Ports
	flags       *flags.Flags
	metrics     *metrics.Metrics
	now         func() int64
	directMerge bool
}

// New constructs the reconciler; flags and metrics may be nil in tests
func New(p Ports, fl *flags.Flags, m *metrics.Metrics) *Service {
	if fl == nil {
		fl = flags.None()
	}
	return &Service{
		ports:       p,
		flags:       fl,
		metrics:     m,
		now:         func() int64 { return time.Now().Unix() },
		directMerge: true,
	}
}

// SetDirectMergeReconciliation toggles per-commit direct-merge derivation
func (s *Service) SetDirectMergeReconciliation(on bool) { s.directMerge = on }

var _ dom.ProcessorPort = (*Service)(nil)

// ProcessCommits reconciles one push payload. Each commit is best-effort;
// one failing commit does not stop the rest of the page.
func (s *Service) ProcessCommits(ctx context.Context, tenant string, push dom.PushEvent) dom.ProcessingStatus {
	ctx = store.WithTenant(ctx, tenant)
	log := logger.C(ctx).With().
		Str("repo", push.RepoID).
		Str("provider", push.Provider).
		Logger()

	status := dom.ProcessingStatus{}
	var firstErr, firstDMErr error

	for _, c := range push.Commits {
		c.RepoID = push.RepoID
		c.IntegrationID = push.IntegrationID
		c.Provider = push.Provider
		if c.Branch == "" {
			c.Branch = push.Branch
		}
		if c.PushedAt == 0 {
			c.PushedAt = push.PushedAt
		}

		if err := s.processCommit(ctx, tenant, c, &log); err != nil && firstErr == nil {
			firstErr = err
		}
		if !s.directMerge {
			continue
		}
		if err := s.reconcileDirectMerge(ctx, c, &log); err != nil && firstDMErr == nil {
			firstDMErr = err
		}
	}

	status[dom.PhaseCommits] = stepFrom(firstErr, len(push.Commits) > 0)
	status[dom.PhaseDirectMerge] = stepFrom(firstDMErr, s.directMerge && len(push.Commits) > 0)
	return status
}

func (s *Service) processCommit(ctx context.Context, tenant string, c dom.Commit, log *logger.Logger) error {
	stored, found, err := s.ports.Commits.GetCommit(ctx, c.IntegrationID, c.RepoID, c.SHA)
	if err != nil {
		log.Error().Err(err).Str("sha", c.SHA).Msg("commit lookup failed")
		return err
	}

	var prev *dom.Commit
	if found {
		prev = &stored
	}
	action := dedup.DecideCommit(prev, c, s.flags.MaxCommitChanges(), s.flags.SkipHugeCommits(tenant))

	switch action {
	case dedup.CommitInsert:
		if err := s.ports.Commits.InsertCommit(ctx, c); err != nil {
			log.Error().Err(err).Str("sha", c.SHA).Msg("commit insert failed")
			return err
		}
		s.metrics.CommitInserted(tenant, c.Provider)
	case dedup.CommitSkip:
		log.Debug().Str("sha", c.SHA).Int("volume", c.ChangeVolume()).Msg("oversized commit skipped")
	case dedup.CommitUpdateBranch:
		if err := s.ports.Commits.UpdateBranch(ctx, c.IntegrationID, c.RepoID, c.SHA, c.Branch, c.PushedAt); err != nil {
			log.Error().Err(err).Str("sha", c.SHA).Msg("branch update failed")
			return err
		}
		s.metrics.CommitDeduped(tenant, c.Provider)
	case dedup.CommitNone:
		s.metrics.CommitDeduped(tenant, c.Provider)
	}
	return nil
}

// reconcileDirectMerge derives and persists whether the commit reached its
// branch without a PR; re-derivable, so failures just log
func (s *Service) reconcileDirectMerge(ctx context.Context, c dom.Commit, log *logger.Logger) error {
	n, err := s.ports.PRs.CountPRsReferencing(ctx, c.IntegrationID, c.RepoID, c.SHA)
	if err != nil {
		log.Warn().Err(err).Str("sha", c.SHA).Msg("pr reference lookup failed")
		return err
	}
	if err := s.ports.Commits.SetDirectMerge(ctx, c.IntegrationID, c.RepoID, c.SHA, n == 0); err != nil {
		log.Warn().Err(err).Str("sha", c.SHA).Msg("direct merge flag write failed")
		return err
	}
	return nil
}

// ProcessPullRequest reconciles one PR payload and its merge commit
func (s *Service) ProcessPullRequest(ctx context.Context, tenant string, pr dom.PullRequest) dom.ProcessingStatus {
	ctx = store.WithTenant(ctx, tenant)
	log := logger.C(ctx).With().
		Str("repo", pr.RepoID).
		Int("pr", pr.Number).
		Logger()

	status := dom.ProcessingStatus{}

	stored, found, err := s.ports.PRs.GetPR(ctx, pr.IntegrationID, pr.RepoID, pr.Number)
	if err != nil {
		log.Error().Err(err).Msg("pr lookup failed")
		status[dom.PhasePR] = dom.StepResult{Kind: dom.StepFailed, Err: err}
		return status
	}

	var prev *dom.PullRequest
	if found {
		prev = &stored
	}
	switch dedup.DecidePR(prev, pr, s.flags.ReviewRaceEnabled(tenant)) {
	case dedup.PRUpsert:
		if err := s.ports.PRs.UpsertPR(ctx, pr); err != nil {
			log.Error().Err(err).Msg("pr upsert failed")
			status[dom.PhasePR] = dom.StepResult{Kind: dom.StepFailed, Err: err}
			return status
		}
		s.metrics.PRUpserted(tenant, pr.Provider)
		status[dom.PhasePR] = dom.StepResult{Kind: dom.StepOK}
	case dedup.PRSyncLabels:
		if err := s.ports.PRs.SyncLabels(ctx, pr.IntegrationID, pr.RepoID, pr.Number, pr.Labels); err != nil {
			log.Error().Err(err).Msg("pr label sync failed")
			status[dom.PhasePR] = dom.StepResult{Kind: dom.StepFailed, Err: err}
			return status
		}
		status[dom.PhasePR] = dom.StepResult{Kind: dom.StepOK}
	case dedup.PRNone:
		status[dom.PhasePR] = dom.StepResult{Kind: dom.StepSkipped}
	}

	status[dom.PhaseMergeCommit] = s.reconcileMergeCommit(ctx, tenant, pr, &log)
	return status
}

// reconcileMergeCommit synthesizes the PR's merge commit and applies the
// same dedup as pushed commits, backfilling zero stats on known rows
func (s *Service) reconcileMergeCommit(
	ctx context.Context,
	tenant string,
	pr dom.PullRequest,
	log *logger.Logger,
) dom.StepResult {
	mc, ok := dedup.SynthesizeMergeCommit(pr, s.now)
	if !ok {
		return dom.StepResult{Kind: dom.StepSkipped}
	}

	stored, found, err := s.ports.Commits.GetCommit(ctx, mc.IntegrationID, mc.RepoID, mc.SHA)
	if err != nil {
		log.Error().Err(err).Str("sha", mc.SHA).Msg("merge commit lookup failed")
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	}

	if !found {
		if err := s.ports.Commits.InsertCommit(ctx, mc); err != nil {
			log.Error().Err(err).Str("sha", mc.SHA).Msg("merge commit insert failed")
			return dom.StepResult{Kind: dom.StepFailed, Err: err}
		}
		s.metrics.CommitInserted(tenant, mc.Provider)
		return dom.StepResult{Kind: dom.StepOK}
	}

	if !stored.HasStats() && mc.HasStats() {
		if err := s.ports.Commits.UpdateStats(ctx, mc.IntegrationID, mc.RepoID, mc.SHA,
			mc.Additions, mc.Deletions, mc.Changes); err != nil {
			log.Error().Err(err).Str("sha", mc.SHA).Msg("stat backfill failed")
			return dom.StepResult{Kind: dom.StepFailed, Err: err}
		}
		return dom.StepResult{Kind: dom.StepOK}
	}
	return dom.StepResult{Kind: dom.StepSkipped}
}

func stepFrom(err error, applicable bool) dom.StepResult {
	switch {
	case err != nil:
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	case !applicable:
		return dom.StepResult{Kind: dom.StepSkipped}
	default:
		return dom.StepResult{Kind: dom.StepOK}
	}
}
