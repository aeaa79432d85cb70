package model

import "time"

// Lesson is a single concrete timetable entry (after recurrence expansion
// and timezone normalization), as produced by ICS feeds.
type Lesson struct {
	SourceID string // feed ID from config
	UID      string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// lesson, derived from the local start time.
	InstanceKey string

	Title       string
	Description string
	Room        string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// Slot is a weekly timetable slot as served by the scheduling API.
// Times are kept as the API sends them ("HH:MM" or "HH:MM:SS").
type Slot struct {
	ID        string `json:"id"`
	Day       int    `json:"day"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`

	Title   string `json:"title"`
	Room    string `json:"room,omitempty"`
	Teacher string `json:"teacher,omitempty"`
	Group   string `json:"group,omitempty"`
	// Kind is the offering type, e.g. "lecture", "lab", "seminar".
	Kind string `json:"kind,omitempty"`
}

// Details is the display payload attached to every grid event.
type Details struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Room    string `json:"room,omitempty"`
	Teacher string `json:"teacher,omitempty"`
	Group   string `json:"group,omitempty"`
	Kind    string `json:"kind,omitempty"`
	// Label is the original "HH:MM-HH:MM" text, before clipping.
	Label string `json:"label"`
}

// DetailsOf recovers Details from a placement payload. Layouts read back
// from a cache carry the payload as a decoded JSON object.
func DetailsOf(payload any) Details {
	switch p := payload.(type) {
	case Details:
		return p
	case *Details:
		if p != nil {
			return *p
		}
	case map[string]any:
		var d Details
		d.Source, _ = p["source"].(string)
		d.Title, _ = p["title"].(string)
		d.Room, _ = p["room"].(string)
		d.Teacher, _ = p["teacher"].(string)
		d.Group, _ = p["group"].(string)
		d.Kind, _ = p["kind"].(string)
		d.Label, _ = p["label"].(string)
		return d
	}
	return Details{}
}
