package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
	"weekgrid/internal/schedule"
	"weekgrid/internal/timegrid"
)

//go:embed templates/calendar.html
var templateFS embed.FS

var calendarTmpl = template.Must(template.ParseFS(templateFS, "templates/calendar.html"))

type calendarView struct {
	Entity   string
	Week     string
	Prev     string
	Next     string
	Timezone string
	Body     int
	Ticks    []tickView
	Days     []dayView
	Skipped  int
}

type tickView struct {
	Label string
	Top   int
}

type dayView struct {
	Name   string
	Date   string
	Blocks []blockView
}

type blockView struct {
	Top, Height int
	Left, Width template.CSS
	Title       string
	Room        string
	Label       string
	Overlapping bool
}

// buildCalendarView projects a layout onto day columns in display order.
func buildCalendarView(req weekRequest, layout timegrid.Layout, s *Server) calendarView {
	loc := s.svc.Location()
	monday := req.week.Start(loc)
	proj := timegrid.Projection{Axis: layout.Axis(), Body: layout.BodySize}

	v := calendarView{
		Entity:   req.entity.String(),
		Week:     req.week.String(),
		Prev:     req.week.Prev().String(),
		Next:     req.week.Next().String(),
		Timezone: loc.String(),
		Body:     layout.BodySize,
		Skipped:  len(layout.Skipped),
	}
	for _, t := range layout.Ticks {
		v.Ticks = append(v.Ticks, tickView{Label: timegrid.FormatTime(t), Top: proj.Position(t)})
	}

	for _, day := range schedule.DayOrder(s.cfg.WeekStart) {
		dv := dayView{
			Name: schedule.DayName(day),
			Date: monday.AddDate(0, 0, day-1).Format("02.01."),
		}
		for _, p := range layout.Day(day) {
			d := model.DetailsOf(p.Payload)
			dv.Blocks = append(dv.Blocks, blockView{
				Top:         p.Top,
				Height:      p.Height,
				Left:        template.CSS(fmt.Sprintf("%.4f%%", p.LeftPct)),
				Width:       template.CSS(fmt.Sprintf("%.4f%%", p.WidthPct)),
				Title:       d.Title,
				Room:        d.Room,
				Label:       d.Label,
				Overlapping: p.IsOverlapping,
			})
		}
		v.Days = append(v.Days, dv)
	}
	return v
}

// GET /calendar renders the week grid. The root element carries
// data-ready="true" once rendered, which the PNG capture waits for.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	req, err := s.resolveWeek(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	layout, err := s.svc.Layout(r.Context(), req.entity, req.week)
	if err != nil {
		appLog.Error("calendar layout failed", err, "entity", req.entity.String(), "week", req.week.String())
		http.Error(w, "timetable unavailable", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, buildCalendarView(req, layout, s)); err != nil {
		appLog.Error("calendar template failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
