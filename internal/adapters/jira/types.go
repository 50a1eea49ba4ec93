// Package jira parses Jira REST payloads into the normalized issue model
// consumed by the aggregation service.
package jira

import "encoding/json"

// IssueDoc is a partial Jira REST issue document; only the fields the
// ingestion pipeline reads are typed
type IssueDoc struct {
	Key       string        `json:"key" validate:"required"`
	Fields    IssueFields   `json:"fields" validate:"required"`
	Changelog *ChangelogDoc `json:"changelog"`
}

// IssueFields is the subset of the issue fields object we consume
type IssueFields struct {
	Summary        string    `json:"summary"`
	Updated        string    `json:"updated" validate:"required"`
	ResolutionDate string    `json:"resolutiondate"`
	Created        string    `json:"created"`
	Labels         []string  `json:"labels"`
	IssueType      NamedRef  `json:"issuetype"`
	Status         StatusRef `json:"status"`
	Project        KeyedRef  `json:"project"`
	Parent         *KeyedRef `json:"parent"`
	StoryPoints    *float64  `json:"customfield_10016"`
	// Sprint custom field; either structured objects or greenhopper
	// toString blobs depending on the Jira version
	SprintField json.RawMessage `json:"customfield_10020"`
	EpicLink    string          `json:"customfield_10014"`
}

// NamedRef is a minimal {name} reference
type NamedRef struct {
	Name string `json:"name"`
}

// KeyedRef is a minimal {key} reference
type KeyedRef struct {
	Key string `json:"key"`
}

// StatusRef is a minimal status reference
type StatusRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SprintRef is a structured sprint entry of the sprint custom field
type SprintRef struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
	Name  string `json:"name"`
}

// ChangelogDoc is the issue changelog page
type ChangelogDoc struct {
	Histories []HistoryDoc `json:"histories"`
}

// HistoryDoc is one changelog entry
type HistoryDoc struct {
	Created string           `json:"created" validate:"required"`
	Items   []HistoryItemDoc `json:"items"`
}

// HistoryItemDoc is one changed field inside a changelog entry
type HistoryItemDoc struct {
	Field      string `json:"field"`
	From       string `json:"from"`
	To         string `json:"to"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}
