// Package sprintmap reconciles an issue's sprint add/remove history against
// sprint boundary dates to decide planned, delivered and outside-of-sprint
// status per (issue, sprint) pair.
//
// All timestamps here are epoch seconds; vendor payloads carrying epoch
// milliseconds must be converted before they reach this package.
package sprintmap

import "strings"

// EventKind tags a sprint membership change
type EventKind string

const (
	// EventAdded marks the issue joining the sprint
	EventAdded EventKind = "ADDED"
	// EventRemoved marks the issue leaving the sprint
	EventRemoved EventKind = "REMOVED"
)

// Event is one sprint membership change for an issue
// End is nil while the event is still the current one
type Event struct {
	Kind  EventKind
	Start int64
	End   *int64
}

// covers reports whether t falls inside the event's [Start, End) window
// an open-ended event covers everything at or after Start
func (e Event) covers(t int64) bool {
	if t < e.Start {
		return false
	}
	return e.End == nil || t < *e.End
}

// Sprint holds the boundary dates of one sprint
type Sprint struct {
	ID        string
	Start     *int64
	End       *int64
	Completed *int64
}

// CompletedDate returns the completed date, falling back to the end date
func (s Sprint) CompletedDate() *int64 {
	if s.Completed != nil {
		return s.Completed
	}
	return s.End
}

// StatusInterval records which status an issue held over [Start, End)
type StatusInterval struct {
	StatusID string
	Start    *int64
	End      *int64
}

// StoryPointsEntry records the issue's point value over [Start, End)
// End is nil while the value is still current
type StoryPointsEntry struct {
	Points float64
	Start  *int64
	End    *int64
}

// Mapping is the derived record for one (issue, sprint) pair
type Mapping struct {
	SprintID             string
	AddedAt              *int64
	Planned              bool
	Delivered            bool
	OutsideOfSprint      bool
	RemovedMidSprint     bool
	IgnorableIssueType   bool
	StoryPointsPlanned   float64
	StoryPointsDelivered float64
}

// issue types whose mappings are flagged ignorable in sprint reports
var ignorableIssueTypes = []string{"SUB-TASK"}

// IgnorableIssueType reports whether mappings for this issue type are
// excluded from velocity counts
func IgnorableIssueType(issueType string) bool {
	for _, t := range ignorableIssueTypes {
		if strings.EqualFold(issueType, t) {
			return true
		}
	}
	return false
}
