package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Week is an ISO 8601 week.
type Week struct {
	Year int
	Num  int
}

// ErrBadWeek is returned by ParseWeek.
var ErrBadWeek = errors.New("schedule: malformed week")

// WeekOf returns the ISO week containing t.
func WeekOf(t time.Time) Week {
	y, w := t.ISOWeek()
	return Week{Year: y, Num: w}
}

// ParseWeek reads "2025-W11" (the "W" is optional, case-insensitive).
func ParseWeek(s string) (Week, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	yearPart, weekPart, ok := strings.Cut(s, "-")
	if !ok {
		return Week{}, fmt.Errorf("%w: %q", ErrBadWeek, s)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 1 || year > 9999 {
		return Week{}, fmt.Errorf("%w: %q", ErrBadWeek, s)
	}
	num, err := strconv.Atoi(strings.TrimPrefix(weekPart, "W"))
	if err != nil || num < 1 || num > 53 {
		return Week{}, fmt.Errorf("%w: %q", ErrBadWeek, s)
	}

	w := Week{Year: year, Num: num}
	// Week 53 only exists in some years.
	if WeekOf(w.Start(time.UTC)) != w {
		return Week{}, fmt.Errorf("%w: %q has no week %d", ErrBadWeek, s, num)
	}
	return w, nil
}

func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Num)
}

// Start returns Monday 00:00 of the week in loc.
func (w Week) Start(loc *time.Location) time.Time {
	// January 4th is always in week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, loc)
	monday := jan4.AddDate(0, 0, -((int(jan4.Weekday()) + 6) % 7))
	return monday.AddDate(0, 0, (w.Num-1)*7)
}

// End returns the Monday 00:00 after the week, exclusive.
func (w Week) End(loc *time.Location) time.Time {
	return w.Start(loc).AddDate(0, 0, 7)
}

func (w Week) Next() Week {
	return WeekOf(w.Start(time.UTC).AddDate(0, 0, 7))
}

func (w Week) Prev() Week {
	return WeekOf(w.Start(time.UTC).AddDate(0, 0, -7))
}

// ISODay returns 1 for Monday through 7 for Sunday.
func ISODay(t time.Time) int {
	return (int(t.Weekday())+6)%7 + 1
}

// DayName returns the short English name of an ISO weekday.
func DayName(day int) string {
	if day < 1 || day > 7 {
		return "?"
	}
	return time.Weekday(day % 7).String()[:3]
}

// DayOrder lists ISO weekdays in display order. weekStart "sunday" moves
// Sunday to the front; anything else starts on Monday.
func DayOrder(weekStart string) []int {
	if strings.EqualFold(weekStart, "sunday") {
		return []int{7, 1, 2, 3, 4, 5, 6}
	}
	return []int{1, 2, 3, 4, 5, 6, 7}
}
