package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"aggbridge/internal/adapters/jira"
	"aggbridge/internal/platform/logger"
	jiradom "aggbridge/internal/services/jiraagg/domain"
	jiramod "aggbridge/internal/services/jiraagg/module"
)

func newJiraCmd() *cobra.Command {
	var (
		tenant      string
		integration string
		inputs      []string
		ingestedAt  int64
		from        int64
		reprocess   bool
	)

	cmd := &cobra.Command{
		Use:   "jira",
		Short: "Ingest exported Jira issue documents and reconcile sprint data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			jm := jiramod.New(a.deps, a.eventBus(), a.ruleEngine())
			opts := jm.Options()
			scan := jiradom.ScanContext{
				ConfigVersion:        opts.ConfigVersion,
				SnapshottingDisabled: opts.SnapshottingDisabled,
				Backward:             opts.Backward,
				Reprocess:            reprocess,
			}
			if from > 0 {
				scan.From = &from
			}
			if ingestedAt == 0 {
				ingestedAt = time.Now().Unix()
			}

			files, err := expandInputs(inputs)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return errors.New("no input documents matched")
			}

			ctx = logger.WithJob(ctx, uuid.NewString(), tenant)

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, gctx := errgroup.WithContext(runCtx)
			g.Go(func() error { return a.ops.Run(gctx) })
			g.Go(func() error {
				defer cancel()
				return runJiraJob(gctx, jm.Ports().Processor, tenant, integration, ingestedAt, scan, files)
			})
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id the documents belong to")
	cmd.Flags().StringVar(&integration, "integration", "", "jira integration id")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "issue document file, directory or glob (repeatable)")
	cmd.Flags().Int64Var(&ingestedAt, "ingested-at", 0, "snapshot timestamp, epoch seconds (default now)")
	cmd.Flags().Int64Var(&from, "from", 0, "scan window start, epoch seconds (0 = unbounded)")
	cmd.Flags().BoolVar(&reprocess, "reprocess", false, "force reprocessing of unchanged issues")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("integration")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runJiraJob(
	ctx context.Context,
	proc jiradom.ProcessorPort,
	tenant, integration string,
	ingestedAt int64,
	scan jiradom.ScanContext,
	files []string,
) error {
	log := logger.C(ctx)
	var failed int

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("read failed")
			failed++
			continue
		}
		upd, err := jira.ParseIssue(raw, integration, ingestedAt)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("parse failed")
			failed++
			continue
		}

		status := proc.ProcessIssue(ctx, tenant, upd, scan)
		if status.Failed() {
			failed++
			for phase, step := range status {
				if step.Kind == jiradom.StepFailed {
					log.Error().Err(step.Err).
						Str("issue", upd.Snapshot.Key).
						Str("phase", phase).
						Msg("processing step failed")
				}
			}
		}
	}

	log.Info().Int("documents", len(files)).Int("failed", failed).Msg("jira ingestion finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(files))
	}
	return nil
}

// expandInputs resolves files, directories and globs into a sorted file list
func expandInputs(inputs []string) ([]string, error) {
	var out []string
	for _, in := range inputs {
		if fi, err := os.Stat(in); err == nil && fi.IsDir() {
			entries, err := os.ReadDir(in)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
					out = append(out, filepath.Join(in, e.Name()))
				}
			}
			continue
		}
		matches, err := filepath.Glob(in)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", in, err)
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}
