package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"weekgrid/internal/model"
	"weekgrid/internal/timegrid"
)

// lessonNamespace scopes the UUIDv5 IDs of ICS occurrences.
var lessonNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("weekgrid:lesson"))

// LessonID returns a stable ID for one occurrence of an ICS lesson.
func LessonID(l model.Lesson) string {
	return uuid.NewSHA1(lessonNamespace, []byte(l.SourceID+"\x00"+l.UID+"\x00"+l.InstanceKey)).String()
}

// FromSlots converts API slots into grid events. Days and times are passed
// through as sent; the layout engine skips bad days and reads malformed
// times as 00:00. Slots without an ID get one derived from their content;
// repeated identical slots are told apart by occurrence count.
func FromSlots(source string, slots []model.Slot) []timegrid.Event {
	out := make([]timegrid.Event, 0, len(slots))
	seen := make(map[string]int)
	for _, s := range slots {
		id := s.ID
		if id == "" {
			name := fmt.Sprintf("%s\x00%d\x00%s\x00%s\x00%s", source, s.Day, s.Title, s.StartTime, s.EndTime)
			n := seen[name]
			seen[name] = n + 1
			if n > 0 {
				name = fmt.Sprintf("%s\x00#%d", name, n)
			}
			id = uuid.NewSHA1(lessonNamespace, []byte(name)).String()
		}
		out = append(out, timegrid.Event{
			ID:    id,
			Day:   s.Day,
			Range: timegrid.ParseRange(s.StartTime, s.EndTime),
			Payload: model.Details{
				Source:  source,
				Title:   s.Title,
				Room:    s.Room,
				Teacher: s.Teacher,
				Group:   s.Group,
				Kind:    s.Kind,
				Label:   s.StartTime + "-" + s.EndTime,
			},
		})
	}
	return out
}

// ToEvents converts ICS lessons of week into grid events. All-day lessons
// and lessons starting outside the week are dropped. A lesson running past
// midnight is clipped to the end of its start day.
func ToEvents(lessons []model.Lesson, week Week, loc *time.Location) []timegrid.Event {
	if loc == nil {
		loc = time.Local
	}
	from, to := week.Start(loc), week.End(loc)

	out := make([]timegrid.Event, 0, len(lessons))
	for _, l := range lessons {
		if l.AllDay {
			continue
		}
		start, end := l.Start.In(loc), l.End.In(loc)
		if start.Before(from) || !start.Before(to) {
			continue
		}

		r := timegrid.TimeRange{
			Start: start.Hour()*60 + start.Minute(),
			End:   end.Hour()*60 + end.Minute(),
		}
		if !sameDate(start, end) && end.After(start) {
			r.End = timegrid.MinutesPerDay
		}
		if r.End < r.Start {
			r.End = r.Start
		}

		out = append(out, timegrid.Event{
			ID:    LessonID(l),
			Day:   ISODay(start),
			Range: r,
			Payload: model.Details{
				Source: l.SourceID,
				Title:  l.Title,
				Room:   l.Room,
				Label:  start.Format("15:04") + "-" + end.Format("15:04"),
			},
		})
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
