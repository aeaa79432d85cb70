package timegrid

// Projection maps minutes on an axis onto a body of a given size.
type Projection struct {
	Axis AxisRange
	// Body is the height of the grid body in output units (pixels).
	Body int
}

// Position returns the offset of minutes from the top of the body,
// floored and clamped to [0, Body].
func (p Projection) Position(minutes int) int {
	total := p.Axis.Total()
	if total <= 0 || p.Body <= 0 {
		return 0
	}
	pos := floorDiv((minutes-p.Axis.Min)*p.Body, total)
	return clamp(pos, 0, p.Body)
}

// Vertical returns the top offset and height of r.
//
// Height is the proportional value, cut at the bottom edge of the body.
// It is never inflated to a minimum so short events cannot spill into the
// next slot.
func (p Projection) Vertical(r TimeRange) (top, height int) {
	top = p.Position(r.Start)
	bottom := p.Position(r.End)
	height = bottom - top
	if room := p.Body - top; room < height {
		height = room
	}
	if height < 0 {
		height = 0
	}
	return top, height
}

// Horizontal returns the left offset and width of a lane in percent of
// the day column. gapPct is removed from the width and split evenly on
// both sides.
func Horizontal(a LaneAssignment, gapPct float64) (leftPct, widthPct float64) {
	total := a.TotalLanes
	if total < 1 {
		total = 1
	}
	widthPct = 100 / float64(total)
	leftPct = float64(a.Lane) * widthPct
	if gapPct <= 0 {
		return leftPct, widthPct
	}
	if gapPct > widthPct {
		gapPct = widthPct
	}
	return leftPct + gapPct/2, widthPct - gapPct
}
