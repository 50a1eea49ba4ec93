package jira

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"aggbridge/internal/core/sprintmap"
	perr "aggbridge/internal/platform/errors"
	"aggbridge/internal/services/jiraagg/domain"
)

// Jira timestamps look like 2024-06-01T10:30:00.000+0200
const timeLayout = "2006-01-02T15:04:05.000-0700"

var validate = validator.New(validator.WithRequiredStructEnabled())

// changelog field names we react to
const (
	fieldSprint      = "Sprint"
	fieldStatus      = "status"
	fieldStoryPoints = "Story Points"
)

// ParseIssue decodes and maps one raw Jira issue document.
// Any failure is a parse error aborting this one issue.
func ParseIssue(raw []byte, integrationID string, ingestedAt int64) (domain.IssueUpdate, error) {
	var doc IssueDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.IssueUpdate{}, perr.Wrap(err, perr.ErrorCodeParse, "decode issue document")
	}

	upd, err := MapIssue(doc, integrationID, ingestedAt)
	if err != nil {
		return domain.IssueUpdate{}, err
	}
	upd.Snapshot.CustomFields = customFields(raw)
	return upd, nil
}

// MapIssue converts a decoded issue document into the normalized model
func MapIssue(doc IssueDoc, integrationID string, ingestedAt int64) (domain.IssueUpdate, error) {
	if err := validate.Struct(doc); err != nil {
		return domain.IssueUpdate{}, perr.Wrap(err, perr.ErrorCodeParse, "validate issue document")
	}

	updated, err := parseTime(doc.Fields.Updated)
	if err != nil {
		return domain.IssueUpdate{}, perr.Wrapf(err, perr.ErrorCodeParse, "issue %s: updated", doc.Key)
	}

	snap := domain.IssueSnapshot{
		Key:           doc.Key,
		IntegrationID: integrationID,
		ProjectKey:    doc.Fields.Project.Key,
		IssueType:     doc.Fields.IssueType.Name,
		StatusID:      doc.Fields.Status.ID,
		Summary:       doc.Fields.Summary,
		Labels:        doc.Fields.Labels,
		EpicKey:       doc.Fields.EpicLink,
		UpdatedAt:     updated,
		IngestedAt:    ingestedAt,
	}
	if doc.Fields.Parent != nil {
		snap.ParentKey = doc.Fields.Parent.Key
	}
	if doc.Fields.StoryPoints != nil {
		snap.StoryPoints = *doc.Fields.StoryPoints
	}
	if doc.Fields.ResolutionDate != "" {
		t, err := parseTime(doc.Fields.ResolutionDate)
		if err != nil {
			return domain.IssueUpdate{}, perr.Wrapf(err, perr.ErrorCodeParse, "issue %s: resolutiondate", doc.Key)
		}
		snap.ResolvedAt = &t
	}
	for _, ref := range sprintRefs(doc.Fields.SprintField) {
		snap.SprintIDs = append(snap.SprintIDs, strconv.FormatInt(ref.ID, 10))
	}

	var created *int64
	if doc.Fields.Created != "" {
		t, err := parseTime(doc.Fields.Created)
		if err != nil {
			return domain.IssueUpdate{}, perr.Wrapf(err, perr.ErrorCodeParse, "issue %s: created", doc.Key)
		}
		created = &t
	}

	hist, err := parseChangelog(doc, created)
	if err != nil {
		return domain.IssueUpdate{}, perr.Wrapf(err, perr.ErrorCodeParse, "issue %s: changelog", doc.Key)
	}
	if snap.StoryPoints == 0 {
		// fall back to the latest logged value
		for _, e := range hist.StoryPoints {
			if e.End == nil {
				snap.StoryPoints = e.Points
			}
		}
	}

	return domain.IssueUpdate{Snapshot: snap, History: hist}, nil
}

// changeAt is one changelog item paired with its entry time
type changeAt struct {
	at   int64
	item HistoryItemDoc
}

// parseChangelog rebuilds the issue's temporal data from changelog entries
func parseChangelog(doc IssueDoc, created *int64) (domain.IssueHistory, error) {
	hist := domain.IssueHistory{}
	if doc.Changelog == nil {
		return hist, nil
	}

	var changes []changeAt
	for _, h := range doc.Changelog.Histories {
		at, err := parseTime(h.Created)
		if err != nil {
			return hist, err
		}
		for _, item := range h.Items {
			changes = append(changes, changeAt{at: at, item: item})
		}
	}
	sort.SliceStable(changes, func(i, j int) bool { return changes[i].at < changes[j].at })

	hist.SprintEvents = sprintEvents(changes)
	hist.Statuses = statusIntervals(changes, created, doc.Fields.Status.ID)
	hist.StoryPoints = storyPointsLog(changes, created)
	return hist, nil
}

// sprintEvents diffs each sprint-field change into per-sprint ADD/REMOVE
// events, then closes every event with the start of its successor
func sprintEvents(changes []changeAt) map[string][]sprintmap.Event {
	out := map[string][]sprintmap.Event{}
	add := func(id string, kind sprintmap.EventKind, at int64) {
		if id == "" {
			return
		}
		evs := out[id]
		if n := len(evs); n > 0 {
			t := at
			evs[n-1].End = &t
		}
		out[id] = append(evs, sprintmap.Event{Kind: kind, Start: at})
	}

	for _, c := range changes {
		if !strings.EqualFold(c.item.Field, fieldSprint) {
			continue
		}
		from := csvSet(c.item.From)
		to := csvSet(c.item.To)
		for id := range to {
			if _, ok := from[id]; !ok {
				add(id, sprintmap.EventAdded, c.at)
			}
		}
		for id := range from {
			if _, ok := to[id]; !ok {
				add(id, sprintmap.EventRemoved, c.at)
			}
		}
	}
	return out
}

// statusIntervals chains status transitions into [start, end) intervals;
// the current status stays open-ended
func statusIntervals(changes []changeAt, created *int64, currentStatusID string) []sprintmap.StatusInterval {
	var out []sprintmap.StatusInterval
	open := func(id string, at *int64) {
		if id == "" || at == nil {
			return
		}
		out = append(out, sprintmap.StatusInterval{StatusID: id, Start: at})
	}

	cursor := created
	opened := false
	for _, c := range changes {
		if c.item.Field != fieldStatus {
			continue
		}
		if !opened {
			open(c.item.From, cursor)
			opened = true
		}
		if n := len(out); n > 0 {
			t := c.at
			out[n-1].End = &t
		}
		at := c.at
		open(c.item.To, &at)
	}
	if !opened {
		open(currentStatusID, cursor)
	}
	return out
}

// storyPointsLog chains story point changes into value intervals
func storyPointsLog(changes []changeAt, created *int64) []sprintmap.StoryPointsEntry {
	var out []sprintmap.StoryPointsEntry
	open := func(v float64, at *int64) {
		if at == nil {
			return
		}
		out = append(out, sprintmap.StoryPointsEntry{Points: v, Start: at})
	}

	cursor := created
	for _, c := range changes {
		if !strings.EqualFold(c.item.Field, fieldStoryPoints) {
			continue
		}
		if len(out) == 0 {
			if from, err := strconv.ParseFloat(c.item.FromString, 64); err == nil {
				open(from, cursor)
			}
		}
		if n := len(out); n > 0 {
			t := c.at
			out[n-1].End = &t
		}
		if to, err := strconv.ParseFloat(c.item.ToString, 64); err == nil {
			at := c.at
			open(to, &at)
		}
	}
	return out
}

// customFields collects the scalar customfield_* values off the raw document
func customFields(raw []byte) map[string]string {
	var outer struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil
	}

	out := map[string]string{}
	for k, v := range outer.Fields {
		if !strings.HasPrefix(k, "customfield_") {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			out[k] = s
			continue
		}
		var n float64
		if err := json.Unmarshal(v, &n); err == nil {
			out[k] = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// csvSet splits a comma-separated id list into a set
func csvSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out[t] = struct{}{}
		}
	}
	return out
}

// parseTime converts a Jira timestamp into epoch seconds
func parseTime(s string) (int64, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t.Unix(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
