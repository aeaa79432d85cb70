package timegrid

import (
	"strconv"
	"strings"
)

// MinutesPerDay is the length of the time axis in minutes.
const MinutesPerDay = 24 * 60

// TimeRange is a span of a single day expressed in minutes since midnight.
//
// End is expected to be after Start, but the engine does not enforce it:
// zero or negative ranges are laid out with zero height.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ParseRange parses a pair of "HH:MM" / "HH:MM:SS" strings.
func ParseRange(start, end string) TimeRange {
	return TimeRange{Start: ParseTime(start), End: ParseTime(end)}
}

// Duration returns the length of the range, never negative.
func (r TimeRange) Duration() int {
	return Duration(r.Start, r.End)
}

// Overlaps reports whether r and o intersect as half-open intervals.
// Ranges that only touch at an endpoint do not overlap.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// ParseTime converts "HH:MM" or "HH:MM:SS" into minutes since midnight.
//
// Malformed or empty input yields 0 so that one bad record cannot break a
// whole week's layout. Seconds are accepted but truncated.
func ParseTime(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}

	h, ok := parseField(parts[0], 23)
	if !ok {
		return 0
	}
	m, ok := parseField(parts[1], 59)
	if !ok {
		return 0
	}
	if len(parts) == 3 {
		if _, ok := parseField(parts[2], 59); !ok {
			return 0
		}
	}
	return h*60 + m
}

func parseField(s string, max int) (int, bool) {
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}

// FormatTime renders minutes since midnight as zero-padded "HH:MM".
// Values outside the day wrap modulo 1440.
func FormatTime(minutes int) string {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	var b strings.Builder
	b.Grow(5)
	writePadded(&b, m/60)
	b.WriteByte(':')
	writePadded(&b, m%60)
	return b.String()
}

func writePadded(b *strings.Builder, n int) {
	if n < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.Itoa(n))
}

// Duration returns end-start, or 0 when end is not after start.
func Duration(start, end int) int {
	if end <= start {
		return 0
	}
	return end - start
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
