package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the timezone lessons are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the window, typically one week.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway RRULEs. Zero means 5000.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded lessons and truncation info.
type ExpandResult struct {
	Lessons []model.Lesson
	// TruncatedUIDs records UIDs that hit MaxOccurrencesPerEvent.
	TruncatedUIDs []string
}

// ExpandOccurrences expands parsed events into concrete lessons that
// intersect the window. It handles single events, RRULE recurrence,
// EXDATE exclusions and RECURRENCE-ID overrides. Output is sorted by start
// time, then UID.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by feed + UID.
	type key struct{ feed, uid string }
	base := make(map[key][]ParsedEvent)
	overrides := make(map[key][]ParsedEvent)
	var order []key
	for _, ev := range events {
		k := key{ev.Feed.ID, ev.UID}
		if ev.IsOverride() {
			overrides[k] = append(overrides[k], ev)
			continue
		}
		if _, seen := base[k]; !seen {
			order = append(order, k)
		}
		base[k] = append(base[k], ev)
	}

	for _, k := range order {
		truncated := false
		for _, ev := range base[k] {
			lessons, hitCap := expandEvent(ev, overrides[k], cfg)
			truncated = truncated || hitCap
			result.Lessons = append(result.Lessons, lessons...)
		}
		if truncated {
			result.TruncatedUIDs = append(result.TruncatedUIDs, k.uid)
			appLog.Error("ics: truncated occurrences", errors.New("max occurrences reached"),
				"uid", k.uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	sort.SliceStable(result.Lessons, func(i, j int) bool {
		a, b := result.Lessons[i], result.Lessons[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.UID < b.UID
	})
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Lesson, bool) {
	if ev.RawRRule == "" {
		return expandSingle(ev, overrides, cfg), false
	}
	return expandRecurring(ev, overrides, cfg)
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Lesson {
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}
	if !intersects(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Lesson{makeLesson(ev, start, end, cfg.DisplayLocation)}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Lesson, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen the lower bound by one duration so lessons that started before
	// the window but run into it are kept.
	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Lesson, 0, len(starts))
	for _, occStart := range starts {
		occEnd := occStart.Add(dur)
		if ev.AllDay {
			day := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart, occEnd = day, day.AddDate(0, 0, 1)
		}

		src, s, e := ev, occStart, occEnd
		if o, ok := findOverride(overrides, occStart); ok {
			src, s, e = o, o.Start, o.End
		}
		if !intersects(s, e, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeLesson(src, s, e, cfg.DisplayLocation))
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeLesson(ev ParsedEvent, start, end time.Time, displayLoc *time.Location) model.Lesson {
	startLocal, endLocal := start.In(displayLoc), end.In(displayLoc)
	if ev.AllDay {
		startLocal = pinDate(start, displayLoc)
		endLocal = pinDate(end, displayLoc)
	}
	return model.Lesson{
		SourceID:    ev.Feed.ID,
		UID:         ev.UID,
		InstanceKey: startLocal.Format(time.RFC3339),
		Title:       ev.Summary,
		Description: ev.Description,
		Room:        ev.Location,
		AllDay:      ev.AllDay,
		Start:       startLocal,
		End:         endLocal,
	}
}

// pinDate keeps the calendar date of t at midnight in loc.
func pinDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// intersects reports whether [aStart, aEnd) meets [bStart, bEnd). Zero
// length lessons count when they start inside the window.
func intersects(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && aStart.Before(bEnd)
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
