// Package domain defines the types and interfaces for the jira aggregation service
package domain

import (
	"aggbridge/internal/core/sprintmap"
)

// SentinelIngestedAt marks the single retained row when snapshotting is
// disabled and issues are overwritten in place
const SentinelIngestedAt int64 = 0

// IssueSnapshot is a point-in-time representation of one tracked work item
// identity: (integration, key, IngestedAt); timestamps are epoch seconds
type IssueSnapshot struct {
	Key           string
	IntegrationID string
	ProjectKey    string
	IssueType     string
	StatusID      string
	Summary       string
	Labels        []string
	ParentKey     string
	EpicKey       string
	UpdatedAt     int64
	ResolvedAt    *int64
	IngestedAt    int64
	ConfigVersion int64
	StoryPoints   float64
	SprintIDs     []string
	CustomFields  map[string]string
}

// IssueLink is a typed relation between two issues
type IssueLink struct {
	FromKey  string
	ToKey    string
	Relation string
}

// IssueHistory bundles the temporal data the reconciliation engine reads
type IssueHistory struct {
	SprintEvents map[string][]sprintmap.Event
	Statuses     []sprintmap.StatusInterval
	StoryPoints  []sprintmap.StoryPointsEntry
	Links        []IssueLink
}

// IssueUpdate is one parsed vendor payload ready for reconciliation
type IssueUpdate struct {
	Snapshot IssueSnapshot
	History  IssueHistory
}

// ScanContext describes the ingestion cycle an update arrived in
type ScanContext struct {
	// From is the lower time bound of the scan; nil means a full scan with
	// no watermark, which suppresses event emission
	From *int64
	// Backward marks a historical backfill scan; suppresses event emission
	Backward bool
	// ConfigVersion is the parser/enrichment watermark of this cycle
	ConfigVersion int64
	// SnapshottingDisabled selects overwrite-in-place storage
	SnapshottingDisabled bool
	// Reprocess forces a write regardless of timestamps
	Reprocess bool
}

// UpsertDecision is the per-issue outcome of the reconciliation state machine
type UpsertDecision struct {
	IsNew          bool
	IsUpdated      bool
	NeedsReprocess bool
}

// ShouldInsert reports whether the pipeline writes anything for this issue
func (d UpsertDecision) ShouldInsert() bool {
	return d.IsNew || d.IsUpdated || d.NeedsReprocess
}

// NewOrUpdated reports whether the issue actually changed in this cycle,
// gating event emission
func (d UpsertDecision) NewOrUpdated() bool { return d.IsNew || d.IsUpdated }

// Event types published on issue changes
const (
	EventIssueCreated = "jira_issue_created"
	EventIssueUpdated = "jira_issue_updated"
)

// StepKind classifies the outcome of one processing sub-step
type StepKind string

const (
	// StepOK means the sub-step completed
	StepOK StepKind = "ok"
	// StepSkipped means the sub-step was not applicable this cycle
	StepSkipped StepKind = "skipped"
	// StepFailed means the sub-step errored; the batch continued
	StepFailed StepKind = "failed"
)

// StepResult is the typed outcome of one best-effort sub-step
type StepResult struct {
	Kind StepKind
	Err  error
}

// ProcessingStatus summarizes which phases of one issue's processing
// succeeded; it is the only error surface crossing the batch boundary
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
	PhaseIssue       = "issue"
	PhaseLabels      = "labels"
	PhaseMappings    = "sprint_mappings"
	PhaseStoryPoints = "story_points"
	PhaseLinks       = "links"
	PhaseChildren    = "children"
	PhaseEvent       = "event"
	PhaseRules       = "rules"
)
