package timegrid

// AxisRange is the displayed time window shared by every day of the week.
type AxisRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Total returns the window length in minutes.
func (a AxisRange) Total() int {
	return a.Max - a.Min
}

// Canonical empty-week window. Every caller that has nothing to lay out
// gets 08:00-20:00.
const (
	DefaultAxisMin = 8 * 60
	DefaultAxisMax = 20 * 60
)

// minAxisSpan is forced when clamping collapses the window.
const minAxisSpan = 60

// BuildAxis returns the union of ranges padded by padding minutes and
// clamped to the day. With no ranges the fallback window is returned.
func BuildAxis(ranges []TimeRange, padding int, fallback AxisRange) AxisRange {
	if len(ranges) == 0 {
		return fallback
	}

	lo, hi := ranges[0].Start, ranges[0].End
	for _, r := range ranges[1:] {
		if r.Start < lo {
			lo = r.Start
		}
		if r.End > hi {
			hi = r.End
		}
	}

	axis := AxisRange{
		Min: clamp(lo-padding, 0, MinutesPerDay),
		Max: clamp(hi+padding, 0, MinutesPerDay),
	}
	if axis.Max <= axis.Min {
		axis.Max = axis.Min + minAxisSpan
	}
	return axis
}

// TickStep picks the gridline spacing for a window of total minutes.
func TickStep(total int) int {
	switch {
	case total <= 120:
		return 20
	case total <= 360:
		return 30
	default:
		return 60
	}
}

// BuildTicks returns the gridline positions for [axisMin, axisMax].
//
// Ticks are multiples of the step that fall inside the window. axisMax is
// always the last tick so the bottom edge of the grid carries a label.
func BuildTicks(axisMin, axisMax int) []int {
	if axisMax < axisMin {
		return nil
	}
	step := TickStep(axisMax - axisMin)

	origin := floorDiv(axisMin, step) * step
	ticks := make([]int, 0, (axisMax-origin)/step+2)
	for t := origin; t <= axisMax; t += step {
		if t < axisMin {
			continue
		}
		ticks = append(ticks, t)
	}
	if len(ticks) == 0 || ticks[len(ticks)-1] != axisMax {
		ticks = append(ticks, axisMax)
	}
	return ticks
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
