package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	ghadapter "aggbridge/internal/adapters/scm/github"
	"aggbridge/internal/adapters/scm/gitlab"
	"aggbridge/internal/platform/logger"
	scmdom "aggbridge/internal/services/scmagg/domain"
	scmmod "aggbridge/internal/services/scmagg/module"
)

func newSCMCmd() *cobra.Command {
	var (
		tenant      string
		integration string
		provider    string
		repos       []string
		branch      string
		lookback    time.Duration
		pushGlobs   []string
		mrGlobs     []string
		reconcileDM bool
	)

	cmd := &cobra.Command{
		Use:   "scm",
		Short: "Ingest commits and pull requests from GitHub or GitLab",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			opts := scmmod.FromConfig(a.cfg)
			if cmd.Flags().Changed("reconcile-direct-merges") {
				opts.ReconcileDirectMerges = reconcileDM
			}
			sm := scmmod.NewWithOptions(a.deps, opts)
			proc := sm.Ports().Processor

			ctx = logger.WithJob(ctx, uuid.NewString(), tenant)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error { return a.ops.Run(gctx) })
			g.Go(func() error {
				defer cancel()
				switch provider {
				case scmdom.ProviderGitHub:
					token := a.cfg.Prefix("SCM_").MustString("GITHUB_TOKEN")
					return runGitHubJob(gctx, proc, tenant, integration, token, repos, branch, lookback)
				case scmdom.ProviderGitLab:
					return runGitLabJob(gctx, proc, tenant, integration, repos, pushGlobs, mrGlobs)
				default:
					return fmt.Errorf("unknown provider %q", provider)
				}
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id the repositories belong to")
	cmd.Flags().StringVar(&integration, "integration", "", "scm integration id")
	cmd.Flags().StringVar(&provider, "provider", scmdom.ProviderGitHub, "github or gitlab")
	cmd.Flags().StringSliceVar(&repos, "repo", nil, "repository as owner/name (repeatable)")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to list commits from (default repo default)")
	cmd.Flags().DurationVar(&lookback, "lookback", 24*time.Hour, "how far back to list commits")
	cmd.Flags().StringSliceVar(&pushGlobs, "pushes", nil, "gitlab push webhook document glob (repeatable)")
	cmd.Flags().StringSliceVar(&mrGlobs, "merge-requests", nil, "gitlab merge request document glob (repeatable)")
	cmd.Flags().BoolVar(&reconcileDM, "reconcile-direct-merges", true,
		"re-derive the direct-merge flag for every commit seen (overrides SCM_RECONCILE_DIRECT_MERGES)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("integration")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}

// runGitHubJob polls every configured repository side by side
func runGitHubJob(
	ctx context.Context,
	proc scmdom.ProcessorPort,
	tenant, integration, token string,
	repos []string,
	branch string,
	lookback time.Duration,
) error {
	g, gctx := errgroup.WithContext(ctx)
	since := time.Now().Add(-lookback)

	for _, full := range repos {
		owner, name, ok := strings.Cut(full, "/")
		if !ok {
			return fmt.Errorf("bad repo %q, want owner/name", full)
		}
		g.Go(func() error {
			log := logger.C(gctx).With().Str("repo", full).Logger()
			poller := ghadapter.New(gctx, ghadapter.Config{
				Token:         token,
				Owner:         owner,
				Repo:          name,
				IntegrationID: integration,
				Branch:        branch,
				Since:         since,
			})

			var failed int
			if err := poller.Commits(gctx, func(push scmdom.PushEvent) error {
				if proc.ProcessCommits(gctx, tenant, push).Failed() {
					failed++
				}
				return nil
			}); err != nil {
				return err
			}
			if err := poller.PullRequests(gctx, func(pr scmdom.PullRequest) error {
				if proc.ProcessPullRequest(gctx, tenant, pr).Failed() {
					failed++
				}
				return nil
			}); err != nil {
				return err
			}

			log.Info().Int("failed", failed).Msg("github ingestion finished")
			if failed > 0 {
				return fmt.Errorf("%s: %d pages failed", full, failed)
			}
			return nil
		})
	}
	return g.Wait()
}

// runGitLabJob replays exported webhook and merge request documents
func runGitLabJob(
	ctx context.Context,
	proc scmdom.ProcessorPort,
	tenant, integration string,
	repos, pushGlobs, mrGlobs []string,
) error {
	if len(repos) != 1 {
		return fmt.Errorf("gitlab replay needs exactly one --repo, got %d", len(repos))
	}
	repoID := repos[0]
	log := logger.C(ctx).With().Str("repo", repoID).Logger()

	pushes, err := expandInputs(pushGlobs)
	if err != nil {
		return err
	}
	mrs, err := expandInputs(mrGlobs)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range pushes {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		push, err := gitlab.ParsePushHook(raw, repoID, integration, time.Now().Unix())
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("push hook parse failed")
			failed++
			continue
		}
		if proc.ProcessCommits(ctx, tenant, push).Failed() {
			failed++
		}
	}
	for _, path := range mrs {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		pr, err := gitlab.ParseMergeRequest(raw, repoID, integration)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("merge request parse failed")
			failed++
			continue
		}
		if proc.ProcessPullRequest(ctx, tenant, pr).Failed() {
			failed++
		}
	}

	log.Info().Int("pushes", len(pushes)).Int("merge_requests", len(mrs)).Int("failed", failed).
		Msg("gitlab ingestion finished")
	if failed > 0 {
		return fmt.Errorf("%s: %d documents failed", repoID, failed)
	}
	return nil
}
