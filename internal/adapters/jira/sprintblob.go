package jira

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseSprintBlob parses a greenhopper sprint toString blob of the form
//
//	com.atlassian.greenhopper.service.sprint.Sprint@6e[id=42,state=ACTIVE,name=Sprint 3,...]
//
// Older Jira versions serialize the sprint custom field this way instead of
// as structured objects.
func ParseSprintBlob(s string) (SprintRef, bool) {
	open := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if open < 0 || end < open {
		return SprintRef{}, false
	}

	var ref SprintRef
	for _, kv := range strings.Split(s[open+1:end], ",") {
		k, v, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(k) {
		case "id":
			id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return SprintRef{}, false
			}
			ref.ID = id
		case "state":
			ref.State = strings.TrimSpace(v)
		case "name":
			ref.Name = strings.TrimSpace(v)
		}
	}
	if ref.ID == 0 {
		return SprintRef{}, false
	}
	return ref, true
}

// sprintRefs decodes the sprint custom field, accepting both structured
// objects and greenhopper blobs
func sprintRefs(raw json.RawMessage) []SprintRef {
	if len(raw) == 0 {
		return nil
	}

	var structured []SprintRef
	if err := json.Unmarshal(raw, &structured); err == nil && len(structured) > 0 && structured[0].ID != 0 {
		return structured
	}

	var blobs []string
	if err := json.Unmarshal(raw, &blobs); err != nil {
		return nil
	}
	out := make([]SprintRef, 0, len(blobs))
	for _, b := range blobs {
		if ref, ok := ParseSprintBlob(b); ok {
			out = append(out, ref)
		}
	}
	return out
}
