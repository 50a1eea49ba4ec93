// Package repo provides Postgres bindings for the jira aggregation ports
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"aggbridge/internal/core/sprintmap"
	"aggbridge/internal/modkit/repokit"
	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/platform/store"
	pstrings "aggbridge/internal/platform/strings"
	ptime "aggbridge/internal/platform/time"
	"aggbridge/internal/services/jiraagg/domain"
)

// Storage is the full persistence surface of the jira aggregation service
type Storage interface {
	domain.SprintStore
	domain.StatusStore
	domain.IssueStore
	domain.MappingStore
	domain.StoryPointsStore
	domain.LinkStore
	domain.ConfigService
}

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(r repokit.TxRunner) Storage { return &pg{r: r} }

// pg runs each operation in its own transaction so per-tx begin hooks
// (tenant scoping) apply to every statement it issues
type pg struct{ r repokit.TxRunner }

var _ Storage = (*pg)(nil)

// GetSprint implements domain.SprintStore
// raw sprint dates are stored as epoch milliseconds
func (s *pg) GetSprint(ctx context.Context, integrationID, sprintID string) (sp sprintmap.Sprint, found bool, err error) {
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		var startMS, endMS, completedMS *int64
		err := q.QueryRow(ctx, `
			SELECT start_date, end_date, completed_date
			FROM jira_sprints
			WHERE integration_id = $1 AND sprint_id = $2
		`, integrationID, sprintID).Scan(&startMS, &endMS, &completedMS)
		if err != nil {
			if isNoRows(err) {
				return nil
			}
			return perr.FromPostgresf(err, "get sprint %s", sprintID)
		}
		sp = sprintmap.Sprint{
			ID:        sprintID,
			Start:     ptime.MillisPtrToSeconds(startMS),
			End:       ptime.MillisPtrToSeconds(endMS),
			Completed: ptime.MillisPtrToSeconds(completedMS),
		}
		found = true
		return nil
	})
	return sp, found, err
}

// GetStatusCategory implements domain.StatusStore
func (s *pg) GetStatusCategory(ctx context.Context, integrationID, statusID string) (cat string, found bool, err error) {
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		err := q.QueryRow(ctx, `
			SELECT category
			FROM jira_status_metadata
			WHERE integration_id = $1 AND status_id = $2
		`, integrationID, statusID).Scan(&cat)
		if err != nil {
			if isNoRows(err) {
				return nil
			}
			return perr.FromPostgresf(err, "get status category %s", statusID)
		}
		found = true
		return nil
	})
	return cat, found, err
}

// GetIssue implements domain.IssueStore
func (s *pg) GetIssue(ctx context.Context, integrationID, key string, ingestedAt int64) (iss domain.IssueSnapshot, found bool, err error) {
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		row := q.QueryRow(ctx, `
			SELECT issue_key, integration_id, project_key, issue_type, status_id,
			       summary, labels, parent_key, epic_key, updated_at, resolved_at,
			       ingested_at, config_version, story_points, sprint_ids, custom_fields
			FROM jira_issues
			WHERE integration_id = $1 AND issue_key = $2 AND ingested_at = $3
		`, integrationID, key, ingestedAt)

		got, err := scanIssue(row)
		if err != nil {
			if isNoRows(err) {
				return nil
			}
			return perr.FromPostgresf(err, "get issue %s", key)
		}
		iss, found = got, true
		return nil
	})
	return iss, found, err
}

// UpsertIssue implements domain.IssueStore
// the unique constraint provides the row-level race tolerance concurrent
// ingestion jobs rely on
func (s *pg) UpsertIssue(ctx context.Context, iss domain.IssueSnapshot) error {
	cf, err := json.Marshal(iss.CustomFields)
	if err != nil {
		return fmt.Errorf("marshal custom fields %s: %w", iss.Key, err)
	}
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			INSERT INTO jira_issues (
				issue_key, integration_id, project_key, issue_type, status_id,
				summary, labels, parent_key, epic_key, updated_at, resolved_at,
				ingested_at, config_version, story_points, sprint_ids, custom_fields
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			ON CONFLICT (integration_id, issue_key, ingested_at) DO UPDATE SET
				project_key    = EXCLUDED.project_key,
				issue_type     = EXCLUDED.issue_type,
				status_id      = EXCLUDED.status_id,
				summary        = EXCLUDED.summary,
				labels         = EXCLUDED.labels,
				parent_key     = EXCLUDED.parent_key,
				epic_key       = EXCLUDED.epic_key,
				updated_at     = EXCLUDED.updated_at,
				resolved_at    = EXCLUDED.resolved_at,
				config_version = EXCLUDED.config_version,
				story_points   = EXCLUDED.story_points,
				sprint_ids     = EXCLUDED.sprint_ids,
				custom_fields  = EXCLUDED.custom_fields
		`,
			iss.Key, iss.IntegrationID, iss.ProjectKey, iss.IssueType, iss.StatusID,
			iss.Summary, iss.Labels, pstrings.SQLNull(iss.ParentKey), pstrings.SQLNull(iss.EpicKey),
			iss.UpdatedAt, iss.ResolvedAt, iss.IngestedAt, iss.ConfigVersion,
			iss.StoryPoints, iss.SprintIDs, cf,
		)
		if err != nil {
			return perr.FromPostgresf(err, "upsert issue %s", iss.Key)
		}
		return nil
	})
}

// CountSnapshots implements domain.IssueStore
func (s *pg) CountSnapshots(ctx context.Context, integrationID, key string) (n int, err error) {
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		n, err = store.Scalar[int](ctx, q, `
			SELECT count(*) FROM jira_issues
			WHERE integration_id = $1 AND issue_key = $2
		`, integrationID, key)
		if err != nil {
			return perr.FromPostgresf(err, "count snapshots %s", key)
		}
		return nil
	})
	return n, err
}

// StreamChildren implements domain.IssueStore
// fn runs inside the read tx; writes it triggers open their own tx on
// another pool connection, so the pool needs at least two connections
func (s *pg) StreamChildren(
	ctx context.Context,
	integrationID, parentKey string,
	fn func(domain.IssueSnapshot) error,
) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		rows, err := q.Query(ctx, `
			SELECT issue_key, integration_id, project_key, issue_type, status_id,
			       summary, labels, parent_key, epic_key, updated_at, resolved_at,
			       ingested_at, config_version, story_points, sprint_ids, custom_fields
			FROM jira_issues
			WHERE integration_id = $1 AND (parent_key = $2 OR epic_key = $2)
		`, integrationID, parentKey)
		if err != nil {
			return perr.FromPostgresf(err, "stream children of %s", parentKey)
		}
		defer rows.Close()

		for rows.Next() {
			iss, err := scanIssue(rows)
			if err != nil {
				return fmt.Errorf("scan child of %s: %w", parentKey, err)
			}
			if err := fn(iss); err != nil {
				return err
			}
		}
		return rows.Err()
	})
}

// UpsertMapping implements domain.MappingStore
func (s *pg) UpsertMapping(ctx context.Context, integrationID, issueKey string, m sprintmap.Mapping) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		_, err := q.Exec(ctx, `
			INSERT INTO issue_sprint_mappings (
				integration_id, issue_key, sprint_id, added_at, planned, delivered,
				outside_of_sprint, removed_mid_sprint, ignorable_issue_type,
				story_points_planned, story_points_delivered
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (integration_id, issue_key, sprint_id) DO UPDATE SET
				added_at               = EXCLUDED.added_at,
				planned                = EXCLUDED.planned,
				delivered              = EXCLUDED.delivered,
				outside_of_sprint      = EXCLUDED.outside_of_sprint,
				removed_mid_sprint     = EXCLUDED.removed_mid_sprint,
				ignorable_issue_type   = EXCLUDED.ignorable_issue_type,
				story_points_planned   = EXCLUDED.story_points_planned,
				story_points_delivered = EXCLUDED.story_points_delivered
		`,
			integrationID, issueKey, m.SprintID, m.AddedAt, m.Planned, m.Delivered,
			m.OutsideOfSprint, m.RemovedMidSprint, m.IgnorableIssueType,
			m.StoryPointsPlanned, m.StoryPointsDelivered,
		)
		if err != nil {
			return perr.FromPostgresf(err, "upsert mapping %s/%s", issueKey, m.SprintID)
		}
		return nil
	})
}

// DeleteMappings implements domain.MappingStore
func (s *pg) DeleteMappings(ctx context.Context, integrationID, issueKey string, sprintIDs []string) (n int64, err error) {
	if len(sprintIDs) == 0 {
		return 0, nil
	}
	err = s.r.Tx(ctx, func(q repokit.Queryer) error {
		tag, err := q.Exec(ctx, `
			DELETE FROM issue_sprint_mappings
			WHERE integration_id = $1 AND issue_key = $2 AND sprint_id = ANY($3)
		`, integrationID, issueKey, sprintIDs)
		if err != nil {
			return perr.FromPostgresf(err, "delete mappings %s", issueKey)
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}

// ReplaceLog implements domain.StoryPointsStore
// delete and re-insert happen in one tx; a failed insert rolls the clear back
func (s *pg) ReplaceLog(ctx context.Context, integrationID, issueKey string, entries []sprintmap.StoryPointsEntry) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		if _, err := q.Exec(ctx, `
			DELETE FROM issue_story_points
			WHERE integration_id = $1 AND issue_key = $2
		`, integrationID, issueKey); err != nil {
			return perr.FromPostgresf(err, "clear story points %s", issueKey)
		}
		for _, e := range entries {
			if _, err := q.Exec(ctx, `
				INSERT INTO issue_story_points (integration_id, issue_key, points, start_time, end_time)
				VALUES ($1,$2,$3,$4,$5)
			`, integrationID, issueKey, e.Points, e.Start, e.End); err != nil {
				return perr.FromPostgresf(err, "insert story points %s", issueKey)
			}
		}
		return nil
	})
}

// ReplaceLinks implements domain.LinkStore
func (s *pg) ReplaceLinks(ctx context.Context, integrationID, issueKey string, links []domain.IssueLink) error {
	return s.r.Tx(ctx, func(q repokit.Queryer) error {
		if _, err := q.Exec(ctx, `
			DELETE FROM issue_links
			WHERE integration_id = $1 AND from_key = $2
		`, integrationID, issueKey); err != nil {
			return perr.FromPostgresf(err, "clear links %s", issueKey)
		}
		for _, l := range links {
			if _, err := q.Exec(ctx, `
				INSERT INTO issue_links (integration_id, from_key, to_key, relation)
				VALUES ($1,$2,$3,$4)
				ON CONFLICT (integration_id, from_key, to_key, relation) DO NOTHING
			`, integrationID, l.FromKey, l.ToKey, l.Relation); err != nil {
				return perr.FromPostgresf(err, "insert link %s->%s", l.FromKey, l.ToKey)
			}
		}
		return nil
	})
}

// CustomFieldsConfig implements domain.ConfigService
func (s *pg) CustomFieldsConfig(ctx context.Context, integrationID string) (map[string]struct{}, error) {
	var out map[string]struct{}
	err := s.r.Tx(ctx, func(q repokit.Queryer) error {
		keys, err := store.Many(ctx, q, func(r store.Row) (string, error) {
			var k string
			return k, r.Scan(&k)
		}, `
			SELECT field_key FROM integration_custom_fields
			WHERE integration_id = $1
		`, integrationID)
		if err != nil {
			return perr.FromPostgresf(err, "custom fields config %s", integrationID)
		}

		out = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			out[k] = struct{}{}
		}
		return nil
	})
	return out, err
}

// scanner covers both Row and Rows
type scanner interface{ Scan(dest ...any) error }

func scanIssue(r scanner) (domain.IssueSnapshot, error) {
	var (
		iss    domain.IssueSnapshot
		parent *string
		epic   *string
		cfRaw  []byte
	)
	err := r.Scan(
		&iss.Key, &iss.IntegrationID, &iss.ProjectKey, &iss.IssueType, &iss.StatusID,
		&iss.Summary, &iss.Labels, &parent, &epic, &iss.UpdatedAt, &iss.ResolvedAt,
		&iss.IngestedAt, &iss.ConfigVersion, &iss.StoryPoints, &iss.SprintIDs, &cfRaw,
	)
	if err != nil {
		return domain.IssueSnapshot{}, err
	}
	iss.ParentKey = pstrings.Deref(parent)
	iss.EpicKey = pstrings.Deref(epic)
	if len(cfRaw) > 0 {
		if err := json.Unmarshal(cfRaw, &iss.CustomFields); err != nil {
			return domain.IssueSnapshot{}, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	return iss, nil
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
