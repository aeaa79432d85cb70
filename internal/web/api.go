package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
	"weekgrid/internal/schedule"
	"weekgrid/internal/timegrid"
)

const maxBodyBytes = 1 << 20

// weekRequest is the resolved entity/week of a GET request.
type weekRequest struct {
	entity schedule.Entity
	week   schedule.Week
}

// resolveWeek reads ?entity= and ?week=, defaulting to the configured
// entity and the current week in the display timezone.
func (s *Server) resolveWeek(r *http.Request) (weekRequest, error) {
	q := r.URL.Query()

	raw := q.Get("entity")
	if raw == "" {
		raw = s.cfg.DefaultEntity
	}
	entity, err := schedule.ParseEntity(raw)
	if err != nil {
		return weekRequest{}, err
	}

	week := schedule.WeekOf(s.now().In(s.svc.Location()))
	if w := q.Get("week"); w != "" {
		if week, err = schedule.ParseWeek(w); err != nil {
			return weekRequest{}, err
		}
	}
	return weekRequest{entity: entity, week: week}, nil
}

// layoutResponse is the JSON shape of GET /api/layout.
type layoutResponse struct {
	Entity   string          `json:"entity"`
	Week     string          `json:"week"`
	Prev     string          `json:"prev"`
	Next     string          `json:"next"`
	Timezone string          `json:"timezone"`
	Layout   timegrid.Layout `json:"layout"`
}

// GET /api/layout?entity=group:cs-101&week=2025-W11
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	req, err := s.resolveWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	layout, err := s.svc.Layout(r.Context(), req.entity, req.week)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, layoutResponse{
		Entity:   req.entity.String(),
		Week:     req.week.String(),
		Prev:     req.week.Prev().String(),
		Next:     req.week.Next().String(),
		Timezone: s.svc.Location().String(),
		Layout:   layout,
	})
}

// eventsResponse is the JSON shape of GET /api/events.
type eventsResponse struct {
	Entity string           `json:"entity"`
	Week   string           `json:"week"`
	Events []timegrid.Event `json:"events"`
}

// GET /api/events returns the merged events before layout.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	req, err := s.resolveWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := s.svc.Week(r.Context(), req.entity, req.week)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Entity: req.entity.String(),
		Week:   req.week.String(),
		Events: events,
	})
}

// layoutRequest is the body of POST /api/layout. A bare JSON array of
// slots is accepted as well.
type layoutRequest struct {
	Slots   []model.Slot      `json:"slots"`
	Options *timegrid.Options `json:"options,omitempty"`
}

// POST /api/layout lays out the posted slots without touching any source.
func (s *Server) handleLayoutPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	slots, opts, err := decodeLayoutRequest(body, s.svc.Options())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	layout, err := timegrid.LayoutWeek(schedule.FromSlots("request", slots), opts)
	if errors.Is(err, timegrid.ErrInvalidOptions) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		appLog.Error("layout failed", err)
		writeError(w, http.StatusInternalServerError, "layout failed")
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// decodeLayoutRequest overlays any posted options onto defaults, so keys
// the client leaves out keep the server's values.
func decodeLayoutRequest(body []byte, defaults timegrid.Options) ([]model.Slot, timegrid.Options, error) {
	opts := defaults
	req := layoutRequest{Options: &opts}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &req.Slots); err != nil {
			return nil, defaults, fmt.Errorf("invalid slots: %w", err)
		}
		return req.Slots, opts, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, defaults, fmt.Errorf("invalid request: %w", err)
	}
	// "options": null leaves req.Options nil and opts untouched.
	return req.Slots, opts, nil
}

// POST /api/refresh[?entity=] drops cached layouts and, when a refresher
// is attached, recomputes the default week.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := s.svc.Cache()

	var (
		n   int
		err error
	)
	if raw := r.URL.Query().Get("entity"); raw != "" {
		entity, perr := schedule.ParseEntity(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		n, err = c.Invalidate(ctx, entity.String())
	} else {
		n, err = c.Purge(ctx)
	}
	if err != nil {
		appLog.Error("cache purge failed", err)
		writeError(w, http.StatusInternalServerError, "cache purge failed")
		return
	}

	if s.refresher != nil {
		if err := s.refresher.RunOnce(ctx); err != nil {
			appLog.Error("refresh failed", err)
			writeError(w, http.StatusBadGateway, "refresh failed")
			return
		}
	}

	appLog.Info("cache purged via API", "entries", n)
	writeJSON(w, http.StatusOK, map[string]int{"purged": n})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, schedule.ErrNoData) {
		writeError(w, http.StatusBadGateway, "timetable sources unavailable")
		return
	}
	appLog.Error("layout request failed", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
