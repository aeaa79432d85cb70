package ics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"weekgrid/internal/fetch"
)

// Week of Monday 2025-03-10 in UTC.
var (
	weekStart = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	weekEnd   = weekStart.AddDate(0, 0, 7)
)

const timetableICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//weekgrid//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:algebra@uni\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250303T090000Z\r\n" +
	"DTEND:20250303T103000Z\r\n" +
	"RRULE:FREQ=WEEKLY;BYDAY=MO,WE\r\n" +
	"EXDATE:20250312T090000Z\r\n" +
	"SUMMARY:Linear Algebra\r\n" +
	"LOCATION:B-204\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:algebra@uni\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"RECURRENCE-ID:20250310T090000Z\r\n" +
	"DTSTART:20250310T130000Z\r\n" +
	"DTEND:20250310T143000Z\r\n" +
	"SUMMARY:Linear Algebra (moved)\r\n" +
	"LOCATION:A-001\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:lab@uni\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250313T140000Z\r\n" +
	"DTEND:20250313T160000Z\r\n" +
	"SUMMARY:Physics Lab\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:holiday@uni\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20250314\r\n" +
	"DTEND;VALUE=DATE:20250315\r\n" +
	"SUMMARY:Dies academicus\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250311T090000Z\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS(t *testing.T) {
	events, err := ParseICS(Feed{ID: "cs"}, []byte(timetableICS))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4 (the UID-less one is skipped)", len(events))
	}

	algebra := events[0]
	if algebra.RawRRule == "" || len(algebra.ExDates) != 1 || algebra.IsOverride() {
		t.Errorf("algebra = %+v", algebra)
	}
	if !events[1].IsOverride() {
		t.Error("second VEVENT should be an override")
	}
	if !events[3].AllDay {
		t.Error("VALUE=DATE event should be all-day")
	}
}

func TestParseICS_Errors(t *testing.T) {
	if _, err := ParseICS(Feed{}, nil); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestExpandOccurrences(t *testing.T) {
	events, err := ParseICS(Feed{ID: "cs"}, []byte(timetableICS))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}

	res, err := ExpandOccurrences(events, ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      weekStart,
		RangeEnd:        weekEnd,
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences: %v", err)
	}

	var got []string
	for _, l := range res.Lessons {
		got = append(got, l.Start.Format("Mon 15:04")+" "+l.Title)
	}
	want := []string{
		"Mon 13:00 Linear Algebra (moved)",
		"Thu 14:00 Physics Lab",
		"Fri 00:00 Dies academicus",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lessons =\n  %v\nwant\n  %v", got, want)
	}
	if res.Lessons[0].Room != "A-001" {
		t.Errorf("override room = %q, want A-001", res.Lessons[0].Room)
	}
	if !res.Lessons[2].AllDay {
		t.Error("holiday should stay all-day")
	}
}

func TestExpandOccurrences_Cap(t *testing.T) {
	daily := ParsedEvent{
		Feed:     Feed{ID: "cs"},
		UID:      "daily@uni",
		Start:    weekStart.Add(8 * time.Hour),
		End:      weekStart.Add(9 * time.Hour),
		RawRRule: "FREQ=DAILY",
	}
	res, err := ExpandOccurrences([]ParsedEvent{daily}, ExpandConfig{
		DisplayLocation:        time.UTC,
		RangeStart:             weekStart,
		RangeEnd:               weekEnd,
		MaxOccurrencesPerEvent: 3,
	})
	if err != nil {
		t.Fatalf("ExpandOccurrences: %v", err)
	}
	if len(res.Lessons) != 3 || len(res.TruncatedUIDs) != 1 {
		t.Errorf("lessons=%d truncated=%v", len(res.Lessons), res.TruncatedUIDs)
	}
}

func TestExpandOccurrences_BadRange(t *testing.T) {
	_, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: weekEnd, RangeEnd: weekStart})
	if err == nil {
		t.Error("expected error for inverted range")
	}
}

type stubGetter map[string]fetch.Result

func (s stubGetter) Get(_ context.Context, req fetch.Request) (fetch.Result, error) {
	res, ok := s[req.URL]
	if !ok {
		return fetch.Result{}, &fetch.StatusError{Code: 404, Status: "404 Not Found"}
	}
	return res, nil
}

func TestLoadFeeds_PartialFailure(t *testing.T) {
	g := stubGetter{
		"https://uni.example/cs.ics": {Body: []byte(timetableICS)},
	}
	events, err := LoadFeeds(context.Background(), g, []Feed{
		{ID: "cs", URL: "https://uni.example/cs.ics"},
		{ID: "missing", URL: "https://uni.example/missing.ics"},
	})
	if len(events) != 4 {
		t.Errorf("events = %d, want 4 from the healthy feed", len(events))
	}
	var se *fetch.StatusError
	if !errors.As(err, &se) {
		t.Errorf("err = %v, want joined StatusError", err)
	}
}
