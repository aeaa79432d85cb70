// Package timegrid lays out time-ranged events on a seven day week grid.
//
// LayoutWeek is a pure function: it computes a shared time axis, tick
// marks, lane assignments for overlapping events and the geometry of every
// event, and returns data only. Rendering is left to the caller.
package timegrid

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned by LayoutWeek when Options are unusable.
var ErrInvalidOptions = errors.New("timegrid: invalid options")

// Days in a week grid; Day values outside 1..DaysPerWeek are skipped.
const DaysPerWeek = 7

// DefaultBodySize is the body height used when Options.BodySize is zero.
const DefaultBodySize = 600

// MaxBodySize bounds Options.BodySize so projected offsets stay within int.
const MaxBodySize = 1 << 20

// Options configures LayoutWeek.
type Options struct {
	// PaddingMinutes is added before the earliest start and after the
	// latest end. Zero means no padding.
	PaddingMinutes int `json:"padding_minutes"`

	// DefaultAxisMin and DefaultAxisMax describe the window used when there
	// is nothing to lay out. When both are zero, 08:00-20:00 is used.
	DefaultAxisMin int `json:"default_axis_min"`
	DefaultAxisMax int `json:"default_axis_max"`

	// BodySize is the height of the grid body. Top and Height of every
	// placement are expressed in this unit.
	BodySize int `json:"body_size"`

	// LaneGapPct is a cosmetic inset between adjacent lanes, in percent of
	// the day column.
	LaneGapPct float64 `json:"lane_gap_pct"`
}

// DefaultOptions returns 30 minutes of padding, the 08:00-20:00 empty
// window and a 600 unit body.
func DefaultOptions() Options {
	return Options{
		PaddingMinutes: 30,
		DefaultAxisMin: DefaultAxisMin,
		DefaultAxisMax: DefaultAxisMax,
		BodySize:       DefaultBodySize,
	}
}

func (o Options) withDefaults() Options {
	if o.BodySize == 0 {
		o.BodySize = DefaultBodySize
	}
	if o.DefaultAxisMin == 0 && o.DefaultAxisMax == 0 {
		o.DefaultAxisMin = DefaultAxisMin
		o.DefaultAxisMax = DefaultAxisMax
	}
	return o
}

// Validate reports configuration mistakes. Zero values that take defaults
// are accepted.
func (o Options) Validate() error {
	o = o.withDefaults()
	switch {
	case o.PaddingMinutes < 0:
		return fmt.Errorf("%w: padding %d is negative", ErrInvalidOptions, o.PaddingMinutes)
	case o.BodySize < 0:
		return fmt.Errorf("%w: body size %d is negative", ErrInvalidOptions, o.BodySize)
	case o.BodySize > MaxBodySize:
		return fmt.Errorf("%w: body size %d exceeds %d", ErrInvalidOptions, o.BodySize, MaxBodySize)
	case o.DefaultAxisMin < 0 || o.DefaultAxisMax > MinutesPerDay:
		return fmt.Errorf("%w: default axis %d-%d outside the day", ErrInvalidOptions, o.DefaultAxisMin, o.DefaultAxisMax)
	case o.DefaultAxisMax <= o.DefaultAxisMin:
		return fmt.Errorf("%w: default axis max %d not after min %d", ErrInvalidOptions, o.DefaultAxisMax, o.DefaultAxisMin)
	case o.LaneGapPct < 0 || o.LaneGapPct >= 100:
		return fmt.Errorf("%w: lane gap %.2f%% outside [0,100)", ErrInvalidOptions, o.LaneGapPct)
	}
	return nil
}

// Placement is the rendering-ready geometry of one event.
type Placement struct {
	ID  string `json:"id"`
	Day int    `json:"day"`

	Start int `json:"start"`
	End   int `json:"end"`

	// Top and Height are in Options.BodySize units.
	Top    int `json:"top"`
	Height int `json:"height"`

	// LeftPct and WidthPct are percentages of the day column.
	LeftPct  float64 `json:"left_pct"`
	WidthPct float64 `json:"width_pct"`

	Lane          int  `json:"lane"`
	TotalLanes    int  `json:"total_lanes"`
	IsOverlapping bool `json:"is_overlapping"`

	Payload any `json:"payload,omitempty"`
}

// Layout is the result of LayoutWeek.
type Layout struct {
	AxisMin  int   `json:"axis_min"`
	AxisMax  int   `json:"axis_max"`
	Ticks    []int `json:"ticks"`
	BodySize int   `json:"body_size"`

	// Placements are ordered by day, then by (start, end, id).
	Placements []Placement `json:"placements"`

	// Skipped lists IDs of events whose Day is outside 1..7.
	Skipped []string `json:"skipped,omitempty"`
}

// Axis returns the layout's time window.
func (l Layout) Axis() AxisRange {
	return AxisRange{Min: l.AxisMin, Max: l.AxisMax}
}

// Day returns the placements of a single weekday.
func (l Layout) Day(day int) []Placement {
	var out []Placement
	for _, p := range l.Placements {
		if p.Day == day {
			out = append(out, p)
		}
	}
	return out
}

// LayoutWeek computes the week grid for events.
//
// Only invalid options produce an error. Bad event data never does:
// malformed times have already parsed to 0 and out-of-range days are
// reported in Layout.Skipped.
func LayoutWeek(events []Event, opts Options) (Layout, error) {
	if err := opts.Validate(); err != nil {
		return Layout{}, err
	}
	opts = opts.withDefaults()

	var byDay [DaysPerWeek][]Event
	var skipped []string
	ranges := make([]TimeRange, 0, len(events))
	for _, ev := range events {
		if ev.Day < 1 || ev.Day > DaysPerWeek {
			skipped = append(skipped, ev.ID)
			continue
		}
		byDay[ev.Day-1] = append(byDay[ev.Day-1], ev)
		ranges = append(ranges, ev.Range)
	}

	axis := BuildAxis(ranges, opts.PaddingMinutes, AxisRange{Min: opts.DefaultAxisMin, Max: opts.DefaultAxisMax})
	proj := Projection{Axis: axis, Body: opts.BodySize}

	layout := Layout{
		AxisMin:    axis.Min,
		AxisMax:    axis.Max,
		Ticks:      BuildTicks(axis.Min, axis.Max),
		BodySize:   opts.BodySize,
		Placements: make([]Placement, 0, len(ranges)),
		Skipped:    skipped,
	}

	for _, dayEvents := range byDay {
		for _, group := range OverlapGroups(dayEvents) {
			lanes, total := packLanes(group)
			for i, ev := range group {
				assign := LaneAssignment{Lane: lanes[i], TotalLanes: total}
				top, height := proj.Vertical(ev.Range)
				left, width := Horizontal(assign, opts.LaneGapPct)
				layout.Placements = append(layout.Placements, Placement{
					ID:            ev.ID,
					Day:           ev.Day,
					Start:         ev.Range.Start,
					End:           ev.Range.End,
					Top:           top,
					Height:        height,
					LeftPct:       left,
					WidthPct:      width,
					Lane:          assign.Lane,
					TotalLanes:    assign.TotalLanes,
					IsOverlapping: total > 1,
					Payload:       ev.Payload,
				})
			}
		}
	}

	return layout, nil
}
