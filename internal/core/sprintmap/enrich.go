package sprintmap

import "strings"

// doneCategory is the status category that counts as delivered
const doneCategory = "DONE"

// IssueContext carries the issue fields enrichment reads
type IssueContext struct {
	IssueType   string
	ResolvedAt  *int64
	Statuses    []StatusInterval
	StoryPoints []StoryPointsEntry
}

// CategoryFunc resolves a status id to its status category
// ok=false degrades to "interval ignored"
type CategoryFunc func(statusID string) (string, bool)

// Enrich fills the planned/delivered/outside-of-sprint verdicts and story
// point values on a raw mapping produced by ComputeMappings.
//
// Nil added-at, sprint start or completed date short-circuit the affected
// verdict to false (and point values to 0) rather than erroring.
func Enrich(m Mapping, sprint Sprint, issue IssueContext, category CategoryFunc) Mapping {
	m.IgnorableIssueType = IgnorableIssueType(issue.IssueType)

	completed := sprint.CompletedDate()

	// planned: resolved issues count by their resolution time, open issues
	// by when they joined the sprint
	switch {
	case issue.ResolvedAt != nil:
		if sprint.Start != nil && *issue.ResolvedAt < *sprint.Start {
			m.OutsideOfSprint = true
		} else {
			m.Planned = true
		}
	case m.AddedAt != nil && sprint.Start != nil:
		m.Planned = *m.AddedAt < *sprint.Start
	}

	// delivered: the first DONE interval containing the completed date wins.
	// Intervals are examined in input order, which for changelog-derived
	// histories is chronological.
	if completed != nil {
		for _, iv := range issue.Statuses {
			if iv.Start == nil || iv.End == nil {
				continue
			}
			cat, ok := category(iv.StatusID)
			if !ok || !strings.EqualFold(cat, doneCategory) {
				continue
			}
			if *completed >= *iv.Start && *completed < *iv.End {
				m.Delivered = true
				if sprint.Start != nil && *iv.Start < *sprint.Start {
					m.OutsideOfSprint = true
				}
				break
			}
		}
	}

	plannedAt := m.AddedAt
	if m.Planned {
		plannedAt = sprint.Start
	}
	m.StoryPointsPlanned = pointsAt(issue.StoryPoints, plannedAt)
	m.StoryPointsDelivered = pointsAt(issue.StoryPoints, completed)

	return m
}

// pointsAt picks the story point value in effect at t, defaulting to 0
func pointsAt(log []StoryPointsEntry, t *int64) float64 {
	if t == nil {
		return 0
	}
	for _, e := range log {
		if e.Start == nil || *t < *e.Start {
			continue
		}
		if e.End == nil || *t < *e.End {
			return e.Points
		}
	}
	return 0
}
