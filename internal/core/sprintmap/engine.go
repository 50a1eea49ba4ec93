package sprintmap

import "sort"

// Result is the outcome of one ComputeMappings pass
type Result struct {
	// Mappings are the raw per-sprint records, one per resolvable sprint
	Mappings []Mapping
	// Exclude lists sprint ids whose added-at could not be resolved;
	// previously stored mappings for these must be retracted
	Exclude []string
}

// ComputeMappings walks an issue's sprint event history, one sprint id at a
// time, and decides when (if ever) the issue joined each sprint.
//
// Per sprint id:
//   - blank ids are skipped
//   - sprints the cache cannot resolve, or with no start date, contribute
//     nothing (no verdict is possible without boundaries)
//   - an unresolvable added-at lands the sprint id on the exclusion list
//
// The function is pure apart from cache loads; identical inputs yield
// identical results. Output order follows sorted sprint ids.
func ComputeMappings(cache *Cache, eventsBySprint map[string][]Event) Result {
	ids := make([]string, 0, len(eventsBySprint))
	for id := range eventsBySprint {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out Result
	for _, id := range ids {
		sprint, ok := cache.Get(id)
		if !ok || sprint.Start == nil {
			continue
		}

		addedAt := findAddedAt(eventsBySprint[id], *sprint.Start)
		if addedAt == nil {
			out.Exclude = append(out.Exclude, id)
			continue
		}

		out.Mappings = append(out.Mappings, Mapping{
			SprintID:         id,
			AddedAt:          addedAt,
			RemovedMidSprint: removedMidSprint(eventsBySprint[id], *sprint.Start, sprint.End),
		})
	}
	return out
}

// findAddedAt resolves the instant the issue joined the sprint:
// the last event straddling sprint start, if it is an ADD; otherwise the
// first ADD at or after sprint start; otherwise nil
func findAddedAt(events []Event, sprintStart int64) *int64 {
	var straddling *Event
	for i := range events {
		if events[i].covers(sprintStart) {
			straddling = &events[i]
		}
	}
	if straddling != nil && straddling.Kind == EventAdded {
		t := straddling.Start
		return &t
	}

	for i := range events {
		if events[i].Kind == EventAdded && events[i].Start >= sprintStart {
			t := events[i].Start
			return &t
		}
	}
	return nil
}

// removedMidSprint reports whether the issue's last membership change during
// the sprint window was a removal
func removedMidSprint(events []Event, sprintStart int64, sprintEnd *int64) bool {
	if sprintEnd == nil {
		return false
	}
	var last *Event
	for i := range events {
		if events[i].Start >= sprintStart && events[i].Start < *sprintEnd {
			last = &events[i]
		}
	}
	return last != nil && last.Kind == EventRemoved
}
