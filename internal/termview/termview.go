// Package termview draws a week layout as a character grid for terminals.
package termview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"weekgrid/internal/model"
	"weekgrid/internal/schedule"
	"weekgrid/internal/timegrid"
)

const gutterWidth = 6

var (
	colorHeader  = lipgloss.Color("36")
	colorDim     = lipgloss.Color("240")
	colorOverlap = lipgloss.Color("223")

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	styleGutter = lipgloss.NewStyle().Foreground(colorDim)
	styleRule   = lipgloss.NewStyle().Foreground(colorDim)

	laneStyles = []lipgloss.Style{
		lipgloss.NewStyle().Background(lipgloss.Color("24")).Foreground(lipgloss.Color("255")),
		lipgloss.NewStyle().Background(lipgloss.Color("29")).Foreground(lipgloss.Color("255")),
		lipgloss.NewStyle().Background(lipgloss.Color("94")).Foreground(lipgloss.Color("255")),
		lipgloss.NewStyle().Background(lipgloss.Color("54")).Foreground(lipgloss.Color("255")),
	}
)

// Options sizes the grid.
type Options struct {
	// ColumnWidth is the width of one day in cells.
	ColumnWidth int
	// Rows is the height of the body in lines.
	Rows int
	// WeekStart is "monday" or "sunday".
	WeekStart string
}

func (o Options) withDefaults() Options {
	if o.ColumnWidth < 4 {
		o.ColumnWidth = 16
	}
	if o.Rows < 2 {
		o.Rows = 24
	}
	return o
}

// column is one day: the text of every cell and the placement owning it.
type column struct {
	text  [][]rune
	owner [][]int
}

func newColumn(rows, width int) *column {
	c := &column{text: make([][]rune, rows), owner: make([][]int, rows)}
	for r := 0; r < rows; r++ {
		c.text[r] = []rune(strings.Repeat(" ", width))
		c.owner[r] = make([]int, width)
		for i := range c.owner[r] {
			c.owner[r][i] = -1
		}
	}
	return c
}

// Render returns the grid as lines of styled text.
func Render(l timegrid.Layout, opts Options) string {
	opts = opts.withDefaults()
	body := l.BodySize
	if body <= 0 {
		body = timegrid.DefaultBodySize
	}
	rowOf := func(units int) int { return units * opts.Rows / body }

	cols := make(map[int]*column, timegrid.DaysPerWeek)
	for d := 1; d <= timegrid.DaysPerWeek; d++ {
		cols[d] = newColumn(opts.Rows, opts.ColumnWidth)
	}

	for i, p := range l.Placements {
		col, ok := cols[p.Day]
		if !ok {
			continue
		}
		r0 := min(rowOf(p.Top), opts.Rows-1)
		r1 := min(max(rowOf(p.Top+p.Height), r0+1), opts.Rows)
		c0 := int(p.LeftPct*float64(opts.ColumnWidth)/100 + 0.5)
		c1 := int((p.LeftPct+p.WidthPct)*float64(opts.ColumnWidth)/100 + 0.5)
		c0 = min(c0, opts.ColumnWidth-1)
		c1 = min(max(c1, c0+1), opts.ColumnWidth)

		lines := blockLines(p)
		for r := r0; r < r1; r++ {
			var text []rune
			if k := r - r0; k < len(lines) {
				text = []rune(lines[k])
			}
			for c := c0; c < c1; c++ {
				col.owner[r][c] = i
				ch := ' '
				if k := c - c0; k < len(text) {
					ch = text[k]
				}
				col.text[r][c] = ch
			}
		}
	}

	labels := make(map[int]string, len(l.Ticks))
	proj := timegrid.Projection{Axis: l.Axis(), Body: body}
	for _, t := range l.Ticks {
		r := min(rowOf(proj.Position(t)), opts.Rows-1)
		if _, taken := labels[r]; !taken {
			labels[r] = timegrid.FormatTime(t)
		}
	}

	days := schedule.DayOrder(opts.WeekStart)
	var b strings.Builder

	b.WriteString(strings.Repeat(" ", gutterWidth))
	for _, d := range days {
		b.WriteString(styleRule.Render("│"))
		b.WriteString(styleHeader.Width(opts.ColumnWidth).Align(lipgloss.Center).Render(schedule.DayName(d)))
	}
	b.WriteString("\n")

	for r := 0; r < opts.Rows; r++ {
		b.WriteString(styleGutter.Render(fmt.Sprintf("%-*s", gutterWidth, labels[r])))
		for _, d := range days {
			b.WriteString(styleRule.Render("│"))
			b.WriteString(renderRow(cols[d], r, l.Placements))
		}
		b.WriteString("\n")
	}

	if n := len(l.Skipped); n > 0 {
		b.WriteString(styleGutter.Render(fmt.Sprintf("%d entries without a valid day skipped", n)))
		b.WriteString("\n")
	}
	return b.String()
}

// renderRow styles contiguous runs of cells owned by the same placement.
func renderRow(c *column, r int, placements []timegrid.Placement) string {
	var b strings.Builder
	text, owner := c.text[r], c.owner[r]
	for start := 0; start < len(text); {
		end := start + 1
		for end < len(text) && owner[end] == owner[start] {
			end++
		}
		run := string(text[start:end])
		if o := owner[start]; o >= 0 {
			b.WriteString(blockStyle(placements[o]).Render(run))
		} else {
			b.WriteString(run)
		}
		start = end
	}
	return b.String()
}

func blockStyle(p timegrid.Placement) lipgloss.Style {
	s := laneStyles[p.Lane%len(laneStyles)]
	if p.IsOverlapping {
		s = s.Bold(true).Foreground(colorOverlap)
	}
	return s
}

// blockLines is the text shown inside a placement, one entry per row.
func blockLines(p timegrid.Placement) []string {
	d := model.DetailsOf(p.Payload)
	title := d.Title
	if title == "" {
		title = p.ID
	}
	second := timegrid.FormatTime(p.Start) + "-" + timegrid.FormatTime(p.End)
	if d.Room != "" {
		second += " " + d.Room
	}
	return []string{title, second}
}
