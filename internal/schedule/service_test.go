package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"weekgrid/internal/cache"
	"weekgrid/internal/fetch"
	"weekgrid/internal/ics"
	"weekgrid/internal/model"
	"weekgrid/internal/timegrid"
)

type stubSlots struct {
	calls atomic.Int32
	slots []model.Slot
	err   error
}

func (s *stubSlots) WeekSlots(_ context.Context, _, _ string) ([]model.Slot, error) {
	s.calls.Add(1)
	return s.slots, s.err
}

type stubGetter map[string]string

func (g stubGetter) Get(_ context.Context, req fetch.Request) (fetch.Result, error) {
	body, ok := g[req.URL]
	if !ok {
		return fetch.Result{}, &fetch.StatusError{Code: 404, Status: "404 Not Found"}
	}
	return fetch.Result{Body: []byte(body)}, nil
}

const labICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//weekgrid//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:lab@uni\r\n" +
	"DTSTAMP:20250101T000000Z\r\n" +
	"DTSTART:20250310T093000Z\r\n" +
	"DTEND:20250310T110000Z\r\n" +
	"SUMMARY:Physics Lab\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

var (
	groupA = Entity{Kind: KindGroup, ID: "a1"}
	week11 = Week{2025, 11}
)

func apiSlots() []model.Slot {
	return []model.Slot{
		{ID: "s1", Day: 1, StartTime: "09:00", EndTime: "10:00", Title: "Algebra"},
	}
}

func TestServiceWeek_MergesSources(t *testing.T) {
	svc := NewService(ServiceConfig{
		Slots:  &stubSlots{slots: apiSlots()},
		Getter: stubGetter{"https://uni.example/lab.ics": labICS},
		Feeds: []ics.Feed{
			{ID: "lab", URL: "https://uni.example/lab.ics", Entity: "group:a1"},
			{ID: "other", URL: "https://uni.example/other.ics", Entity: "group:b2"},
		},
		Location: time.UTC,
	})

	events, err := svc.Week(context.Background(), groupA, week11)
	if err != nil {
		t.Fatalf("Week: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want api slot + lab", len(events))
	}
	if events[1].Day != 1 || events[1].Range != (timegrid.TimeRange{Start: 570, End: 660}) {
		t.Errorf("lab event = %+v", events[1])
	}
}

func TestServiceWeek_PartialFailure(t *testing.T) {
	svc := NewService(ServiceConfig{
		Slots:    &stubSlots{err: errors.New("api down")},
		Getter:   stubGetter{"https://uni.example/lab.ics": labICS},
		Feeds:    []ics.Feed{{ID: "lab", URL: "https://uni.example/lab.ics"}},
		Location: time.UTC,
	})

	events, err := svc.Week(context.Background(), groupA, week11)
	if err != nil {
		t.Fatalf("partial failure should not be an error: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want the lab only", len(events))
	}
}

func TestServiceWeek_AllSourcesFail(t *testing.T) {
	svc := NewService(ServiceConfig{
		Slots:    &stubSlots{err: errors.New("api down")},
		Getter:   stubGetter{},
		Feeds:    []ics.Feed{{ID: "gone", URL: "https://uni.example/gone.ics"}},
		Location: time.UTC,
	})

	_, err := svc.Week(context.Background(), groupA, week11)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	var se *fetch.StatusError
	if !errors.As(err, &se) {
		t.Errorf("err = %v should keep the feed's StatusError", err)
	}
}

func TestServiceWeek_NoSources(t *testing.T) {
	events, err := NewService(ServiceConfig{}).Week(context.Background(), groupA, week11)
	if err != nil || len(events) != 0 {
		t.Errorf("Week = %v, %v; want empty week", events, err)
	}
}

func TestServiceLayout_UsesCache(t *testing.T) {
	store := cache.NewMemoryStore(8, time.Minute)
	slots := &stubSlots{slots: apiSlots()}
	svc := NewService(ServiceConfig{
		Slots:   slots,
		Options: timegrid.DefaultOptions(),
		Cache:   cache.New(store),
	})

	first, err := svc.Layout(context.Background(), groupA, week11)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if first.AxisMin != 510 || first.AxisMax != 630 || len(first.Placements) != 1 {
		t.Errorf("layout = %+v", first)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d entries, want 1", store.Len())
	}

	second, err := svc.Layout(context.Background(), groupA, week11)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if model.DetailsOf(second.Placements[0].Payload).Title != "Algebra" {
		t.Errorf("cached payload = %#v", second.Placements[0].Payload)
	}

	// Upstream changes are picked up despite the cached entry.
	slots.slots = append(apiSlots(), model.Slot{ID: "s2", Day: 3, StartTime: "14:00", EndTime: "15:00"})
	third, err := svc.Layout(context.Background(), groupA, week11)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(third.Placements) != 2 || third.AxisMax != 930 {
		t.Errorf("layout after change = %+v", third)
	}
	if slots.calls.Load() != 3 {
		t.Errorf("source called %d times, want 3", slots.calls.Load())
	}
}
