// Package service implements the jira issue upsert reconciler
package service

import (
	"context"

	dom "aggbridge/internal/services/jiraagg/domain"

	"aggbridge/internal/core/sprintmap"
	"aggbridge/internal/platform/flags"
	"aggbridge/internal/platform/logger"
	"aggbridge/internal/platform/metrics"
	"aggbridge/internal/platform/store"
)

// Ports bundles the collaborators the reconciler orchestrates
type Ports struct {
	Sprints     dom.SprintStore
	Statuses    dom.StatusStore
	Issues      dom.IssueStore
	Mappings    dom.MappingStore
	StoryPoints dom.StoryPointsStore
	Links       dom.LinkStore
	Bus         dom.EventBus
	Rules       dom.RuleEngine
	Config      dom.ConfigService
}

// Service implements domain.ProcessorPort
type Service struct {
	ports   Ports
	flags   *flags.Flags
	metrics *metrics.Metrics
}

// New constructs the reconciler; flags and metrics may be nil in tests
func New(p Ports, fl *flags.Flags, m *metrics.Metrics) *Service {
	if fl == nil {
		fl = flags.None()
	}
	return &Service{ports: p, flags: fl, metrics: m}
}

var _ dom.ProcessorPort = (*Service)(nil)

// decide runs the per-issue upsert state machine against the stored record
func decide(stored dom.IssueSnapshot, found bool, incoming dom.IssueSnapshot, scan dom.ScanContext) dom.UpsertDecision {
	var d dom.UpsertDecision
	switch {
	case !found:
		d.IsNew = true
	case incoming.UpdatedAt > stored.UpdatedAt:
		d.IsUpdated = true
	}
	if scan.Reprocess {
		d.NeedsReprocess = true
	}
	if found && scan.SnapshottingDisabled && scan.ConfigVersion > stored.ConfigVersion {
		d.NeedsReprocess = true
	}
	return d
}

// ProcessIssue reconciles one parsed issue payload against stored state.
//
// The primary upsert failing aborts the issue; every later phase is
// best-effort and recorded individually in the returned status.
func (s *Service) ProcessIssue(
	ctx context.Context,
	tenant string,
	upd dom.IssueUpdate,
	scan dom.ScanContext,
) dom.ProcessingStatus {
	ctx = store.WithTenant(ctx, tenant)
	log := logger.C(ctx).With().
		Str("issue", upd.Snapshot.Key).
		Str("integration", upd.Snapshot.IntegrationID).
		Logger()

	status := dom.ProcessingStatus{}
	snap := upd.Snapshot

	if scan.SnapshottingDisabled {
		snap.IngestedAt = dom.SentinelIngestedAt
	}
	snap.ConfigVersion = scan.ConfigVersion

	stored, found, err := s.ports.Issues.GetIssue(ctx, snap.IntegrationID, snap.Key, snap.IngestedAt)
	if err != nil {
		log.Error().Err(err).Msg("issue lookup failed")
		status[dom.PhaseIssue] = dom.StepResult{Kind: dom.StepFailed, Err: err}
		return status
	}

	d := decide(stored, found, snap, scan)
	if !d.ShouldInsert() {
		status[dom.PhaseIssue] = dom.StepResult{Kind: dom.StepSkipped}
		s.metrics.IssueSkipped(tenant, "unchanged")
		return status
	}

	// parent labels flow down before the snapshot is written
	status[dom.PhaseLabels] = s.inheritParentLabels(ctx, &snap)

	if err := s.ports.Issues.UpsertIssue(ctx, snap); err != nil {
		log.Error().Err(err).Msg("issue upsert failed")
		status[dom.PhaseIssue] = dom.StepResult{Kind: dom.StepFailed, Err: err}
		return status
	}
	status[dom.PhaseIssue] = dom.StepResult{Kind: dom.StepOK}
	s.metrics.IssueProcessed(tenant, resultLabel(d))

	status[dom.PhaseMappings] = s.reconcileSprints(ctx, tenant, snap, upd.History, &log)
	status[dom.PhaseStoryPoints] = s.persistStoryPoints(ctx, snap, upd.History, &log)
	status[dom.PhaseLinks] = s.persistLinks(ctx, snap, upd.History, &log)
	status[dom.PhaseChildren] = s.propagateLabels(ctx, snap, &log)
	status[dom.PhaseEvent] = s.emitEvent(ctx, tenant, snap, d, scan, &log)
	status[dom.PhaseRules] = s.scanRules(ctx, snap, &log)

	return status
}

func resultLabel(d dom.UpsertDecision) string {
	switch {
	case d.IsNew:
		return "new"
	case d.IsUpdated:
		return "updated"
	default:
		return "reprocessed"
	}
}

// inheritParentLabels unions the parent (or epic) labels into the snapshot
func (s *Service) inheritParentLabels(ctx context.Context, snap *dom.IssueSnapshot) dom.StepResult {
	parentKey := snap.ParentKey
	if parentKey == "" {
		parentKey = snap.EpicKey
	}
	if parentKey == "" {
		return dom.StepResult{Kind: dom.StepSkipped}
	}

	parent, found, err := s.ports.Issues.GetIssue(ctx, snap.IntegrationID, parentKey, snap.IngestedAt)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("parent", parentKey).Msg("parent lookup failed")
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	}
	if !found || len(parent.Labels) == 0 {
		return dom.StepResult{Kind: dom.StepSkipped}
	}
	snap.Labels = unionLabels(snap.Labels, parent.Labels)
	return dom.StepResult{Kind: dom.StepOK}
}

// reconcileSprints runs the mapping engine and applies its writes
func (s *Service) reconcileSprints(
	ctx context.Context,
	tenant string,
	snap dom.IssueSnapshot,
	hist dom.IssueHistory,
	log *logger.Logger,
) dom.StepResult {
	if len(hist.SprintEvents) == 0 {
		return dom.StepResult{Kind: dom.StepSkipped}
	}

	// batch-scoped caches; never shared across issues from different calls
	cache := sprintmap.NewCache(func(id string) (sprintmap.Sprint, bool, error) {
		return s.ports.Sprints.GetSprint(ctx, snap.IntegrationID, id)
	})
	cache.OnLoadError = func(id string, err error) {
		log.Warn().Err(err).Str("sprint", id).Msg("sprint lookup failed, treating as unknown")
	}
	category := func(statusID string) (string, bool) {
		cat, ok, err := s.ports.Statuses.GetStatusCategory(ctx, snap.IntegrationID, statusID)
		if err != nil {
			log.Warn().Err(err).Str("status", statusID).Msg("status category lookup failed")
			return "", false
		}
		return cat, ok
	}

	res := sprintmap.ComputeMappings(cache, hist.SprintEvents)

	issue := sprintmap.IssueContext{
		IssueType:   snap.IssueType,
		ResolvedAt:  snap.ResolvedAt,
		Statuses:    hist.Statuses,
		StoryPoints: hist.StoryPoints,
	}

	var firstErr error
	upserts := 0
	for _, m := range res.Mappings {
		sprint, _ := cache.Get(m.SprintID)
		enriched := sprintmap.Enrich(m, sprint, issue, category)
		if err := s.ports.Mappings.UpsertMapping(ctx, snap.IntegrationID, snap.Key, enriched); err != nil {
			log.Error().Err(err).Str("sprint", m.SprintID).Msg("mapping upsert failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		upserts++
	}
	s.metrics.MappingsUpserted(tenant, upserts)

	if len(res.Exclude) > 0 {
		n, err := s.ports.Mappings.DeleteMappings(ctx, snap.IntegrationID, snap.Key, res.Exclude)
		if err != nil {
			log.Error().Err(err).Strs("sprints", res.Exclude).Msg("mapping cleanup failed")
			if firstErr == nil {
				firstErr = err
			}
		} else {
			s.metrics.MappingsDeleted(tenant, int(n))
		}
	}

	if firstErr != nil {
		s.metrics.StepFailure(tenant, dom.PhaseMappings)
		return dom.StepResult{Kind: dom.StepFailed, Err: firstErr}
	}
	return dom.StepResult{Kind: dom.StepOK}
}

func (s *Service) persistStoryPoints(
	ctx context.Context,
	snap dom.IssueSnapshot,
	hist dom.IssueHistory,
	log *logger.Logger,
) dom.StepResult {
	if len(hist.StoryPoints) == 0 {
		return dom.StepResult{Kind: dom.StepSkipped}
	}
	if err := s.ports.StoryPoints.ReplaceLog(ctx, snap.IntegrationID, snap.Key, hist.StoryPoints); err != nil {
		log.Error().Err(err).Msg("story point log write failed")
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	}
	return dom.StepResult{Kind: dom.StepOK}
}

func (s *Service) persistLinks(
	ctx context.Context,
	snap dom.IssueSnapshot,
	hist dom.IssueHistory,
	log *logger.Logger,
) dom.StepResult {
	if len(hist.Links) == 0 {
		return dom.StepResult{Kind: dom.StepSkipped}
	}
	if err := s.ports.Links.ReplaceLinks(ctx, snap.IntegrationID, snap.Key, hist.Links); err != nil {
		log.Error().Err(err).Msg("issue link write failed")
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	}
	return dom.StepResult{Kind: dom.StepOK}
}

// propagateLabels pushes the issue's labels down to stored children.
// Each child is best-effort; one bad child does not stop the stream.
func (s *Service) propagateLabels(
	ctx context.Context,
	snap dom.IssueSnapshot,
	log *logger.Logger,
) dom.StepResult {
	if len(snap.Labels) == 0 {
		return dom.StepResult{Kind: dom.StepSkipped}
	}

	var firstErr error
	err := s.ports.Issues.StreamChildren(ctx, snap.IntegrationID, snap.Key, func(child dom.IssueSnapshot) error {
		merged := unionLabels(child.Labels, snap.Labels)
		if len(merged) == len(child.Labels) {
			return nil
		}
		child.Labels = merged
		if err := s.ports.Issues.UpsertIssue(ctx, child); err != nil {
			log.Warn().Err(err).Str("child", child.Key).Msg("child label propagation failed")
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("child stream failed")
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	}
	if firstErr != nil {
		return dom.StepResult{Kind: dom.StepFailed, Err: firstErr}
	}
	return dom.StepResult{Kind: dom.StepOK}
}

// emitEvent decides the event type for this cycle and publishes it.
//
// No event leaves on a boundless or backward scan, or when the issue was
// merely reprocessed. A CREATED event additionally requires the issue to be
// the only occurrence across all stored snapshots.
func (s *Service) emitEvent(
	ctx context.Context,
	tenant string,
	snap dom.IssueSnapshot,
	d dom.UpsertDecision,
	scan dom.ScanContext,
	log *logger.Logger,
) dom.StepResult {
	if !d.NewOrUpdated() || scan.From == nil || scan.Backward {
		return dom.StepResult{Kind: dom.StepSkipped}
	}

	eventType := ""
	trulyNew := false
	if d.IsNew {
		n, err := s.ports.Issues.CountSnapshots(ctx, snap.IntegrationID, snap.Key)
		if err != nil {
			// degrade to the updated path rather than losing the event
			log.Warn().Err(err).Msg("snapshot count failed")
		} else {
			trulyNew = n <= 1
		}
	}
	switch {
	case trulyNew:
		eventType = dom.EventIssueCreated
	case s.flags.EmitUpdateEvents(tenant):
		eventType = dom.EventIssueUpdated
	default:
		return dom.StepResult{Kind: dom.StepSkipped}
	}

	data := s.eventPayload(ctx, snap)
	if err := s.ports.Bus.Emit(ctx, eventType, data); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("event emission failed")
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	}
	s.metrics.EventEmitted(tenant, eventType)
	return dom.StepResult{Kind: dom.StepOK}
}

// eventPayload builds the event data map, filtering custom fields through
// the per-integration config
func (s *Service) eventPayload(ctx context.Context, snap dom.IssueSnapshot) map[string]any {
	data := map[string]any{
		"issue_key":      snap.Key,
		"integration_id": snap.IntegrationID,
		"project":        snap.ProjectKey,
		"issue_type":     snap.IssueType,
		"status_id":      snap.StatusID,
		"updated_at":     snap.UpdatedAt,
	}
	if len(snap.CustomFields) == 0 || s.ports.Config == nil {
		return data
	}

	allowed, err := s.ports.Config.CustomFieldsConfig(ctx, snap.IntegrationID)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Msg("custom field config lookup failed")
		return data
	}
	for k, v := range snap.CustomFields {
		if _, ok := allowed[k]; ok {
			data[k] = v
		}
	}
	return data
}

func (s *Service) scanRules(ctx context.Context, snap dom.IssueSnapshot, log *logger.Logger) dom.StepResult {
	if s.ports.Rules == nil {
		return dom.StepResult{Kind: dom.StepSkipped}
	}
	if err := s.ports.Rules.ScanWithRules(ctx, "jira_issue", snap.Key, map[string]any{
		"issue_key":  snap.Key,
		"status_id":  snap.StatusID,
		"issue_type": snap.IssueType,
	}); err != nil {
		log.Warn().Err(err).Msg("rule scan failed")
		return dom.StepResult{Kind: dom.StepFailed, Err: err}
	}
	return dom.StepResult{Kind: dom.StepOK}
}

// unionLabels merges extra into base preserving base order; deduped
func unionLabels(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, l := range base {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	for _, l := range extra {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}
