package domain

import (
	"context"

	"aggbridge/internal/core/sprintmap"
)

// Tenant scoping travels in the context (store.WithTenant); repos bound to a
// tenant-scoped transaction see only that tenant's rows.

// SprintStore resolves sprint boundary dates
type SprintStore interface {
	GetSprint(ctx context.Context, integrationID, sprintID string) (sprintmap.Sprint, bool, error)
}

// StatusStore resolves status-id to status-category metadata
type StatusStore interface {
	GetStatusCategory(ctx context.Context, integrationID, statusID string) (string, bool, error)
}

// IssueStore reads and writes issue snapshots
type IssueStore interface {
	GetIssue(ctx context.Context, integrationID, key string, ingestedAt int64) (IssueSnapshot, bool, error)
	UpsertIssue(ctx context.Context, issue IssueSnapshot) error
	// CountSnapshots counts stored snapshots of the issue across all
	// ingestion timestamps
	CountSnapshots(ctx context.Context, integrationID, key string) (int, error)
	// StreamChildren yields every child of the given parent or epic key;
	// the sequence is finite and not restartable
	StreamChildren(ctx context.Context, integrationID, parentKey string, fn func(IssueSnapshot) error) error
}

// MappingStore persists derived issue-sprint mappings
type MappingStore interface {
	UpsertMapping(ctx context.Context, integrationID, issueKey string, m sprintmap.Mapping) error
	DeleteMappings(ctx context.Context, integrationID, issueKey string, sprintIDs []string) (int64, error)
}

// StoryPointsStore persists the issue's story-point log
type StoryPointsStore interface {
	ReplaceLog(ctx context.Context, integrationID, issueKey string, entries []sprintmap.StoryPointsEntry) error
}

// LinkStore persists typed issue-to-issue relations
type LinkStore interface {
	ReplaceLinks(ctx context.Context, integrationID, issueKey string, links []IssueLink) error
}

// EventBus publishes domain events; delivery is best-effort
type EventBus interface {
	Emit(ctx context.Context, eventType string, data map[string]any) error
}

// RuleEngine runs tenant automation rules against a changed object
type RuleEngine interface {
	ScanWithRules(ctx context.Context, objectType, objectID string, data map[string]any) error
}

// ConfigService exposes which custom fields are included in event payloads
type ConfigService interface {
	CustomFieldsConfig(ctx context.Context, integrationID string) (map[string]struct{}, error)
}

// ProcessorPort is the jira ingestion entrypoint
type ProcessorPort interface {
	ProcessIssue(ctx context.Context, tenant string, upd IssueUpdate, scan ScanContext) ProcessingStatus
}
