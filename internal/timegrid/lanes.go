package timegrid

import "sort"

// Event is a single time-ranged item placed on the week grid.
type Event struct {
	// ID identifies the event within the week. IDs must be unique; with
	// duplicates the lane assignment is unspecified.
	ID string `json:"id"`
	// Day is the ISO weekday, 1 = Monday ... 7 = Sunday.
	Day   int       `json:"day"`
	Range TimeRange `json:"range"`
	// Payload is carried through untouched for renderers.
	Payload any `json:"payload,omitempty"`
}

// LaneAssignment is the horizontal slot of an event inside its day column.
type LaneAssignment struct {
	Lane       int `json:"lane"`
	TotalLanes int `json:"total_lanes"`
}

// sortEvents orders events by start, end, then ID. The ID tiebreak keeps
// the layout stable for events sharing the same range.
func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Range, events[j].Range
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return events[i].ID < events[j].ID
	})
}

// OverlapGroups partitions events of one day into overlap groups.
//
// Events are walked in (start, end, id) order. An event joins the running
// group when it overlaps at least one of its members, otherwise the group
// is closed and a new one begins. Two events that only share an overlapping
// neighbour therefore end up in the same group.
//
// The input slice is not modified.
func OverlapGroups(events []Event) [][]Event {
	if len(events) == 0 {
		return nil
	}
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sortEvents(sorted)

	var groups [][]Event
	current := []Event{sorted[0]}
	for _, ev := range sorted[1:] {
		if overlapsAny(ev, current) {
			current = append(current, ev)
			continue
		}
		groups = append(groups, current)
		current = []Event{ev}
	}
	return append(groups, current)
}

func overlapsAny(ev Event, group []Event) bool {
	for _, member := range group {
		if ev.Range.Overlaps(member.Range) {
			return true
		}
	}
	return false
}

// packLanes assigns lanes within one group, already in sorted order. Each
// event takes the first lane whose last end is not after its start.
func packLanes(group []Event) ([]int, int) {
	lanes := make([]int, len(group))
	var laneEnds []int
	for i, ev := range group {
		lane := -1
		for l, end := range laneEnds {
			if end <= ev.Range.Start {
				lane = l
				break
			}
		}
		if lane < 0 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, ev.Range.End)
		} else {
			laneEnds[lane] = ev.Range.End
		}
		lanes[i] = lane
	}
	return lanes, len(laneEnds)
}

// AssignLanes computes lane assignments for the events of a single day.
//
// Overlapping events always get distinct lanes and every member of an
// overlap group reports the group's lane count, which is the smallest
// number of lanes that avoids overlap.
func AssignLanes(events []Event) map[string]LaneAssignment {
	out := make(map[string]LaneAssignment, len(events))
	for _, group := range OverlapGroups(events) {
		lanes, total := packLanes(group)
		for i, ev := range group {
			out[ev.ID] = LaneAssignment{Lane: lanes[i], TotalLanes: total}
		}
	}
	return out
}
