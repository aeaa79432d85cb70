package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weekgrid/internal/cache"
	"weekgrid/internal/ics"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
	"weekgrid/internal/timegrid"
)

// ErrNoData is returned when every configured source failed.
var ErrNoData = errors.New("schedule: no source could be read")

// SlotSource serves weekly slots, typically *api.Client.
type SlotSource interface {
	WeekSlots(ctx context.Context, entity, week string) ([]model.Slot, error)
}

// ServiceConfig wires a Service. Slots and Getter may be nil to disable
// the API and ICS sources.
type ServiceConfig struct {
	Slots    SlotSource
	Getter   ics.Getter
	Feeds    []ics.Feed
	Location *time.Location
	Options  timegrid.Options
	Cache    *cache.LayoutCache
}

// Service assembles an entity's week from every source and lays it out.
type Service struct {
	slots  SlotSource
	getter ics.Getter
	feeds  []ics.Feed
	loc    *time.Location
	opts   timegrid.Options
	cache  *cache.LayoutCache
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		slots:  cfg.Slots,
		getter: cfg.Getter,
		feeds:  cfg.Feeds,
		loc:    cfg.Location,
		opts:   cfg.Options,
		cache:  cfg.Cache,
	}
}

// Options returns the layout options the service applies.
func (s *Service) Options() timegrid.Options {
	return s.opts
}

// Location returns the display timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Cache returns the layout cache, which may be nil.
func (s *Service) Cache() *cache.LayoutCache {
	return s.cache
}

// feedsFor returns feeds bound to entity plus the unbound ones.
func (s *Service) feedsFor(entity Entity) []ics.Feed {
	var out []ics.Feed
	for _, f := range s.feeds {
		if f.Entity == "" || f.Entity == entity.String() {
			out = append(out, f)
		}
	}
	return out
}

// Week gathers the events of entity in week. A failing source is logged
// and skipped; ErrNoData is returned only when every source failed.
func (s *Service) Week(ctx context.Context, entity Entity, week Week) ([]timegrid.Event, error) {
	var (
		events   = make([]timegrid.Event, 0)
		errs     []error
		attempts int
	)

	if s.slots != nil {
		attempts++
		slots, err := s.slots.WeekSlots(ctx, entity.String(), week.String())
		if err != nil {
			sourceErrors.WithLabelValues("api").Inc()
			appLog.Error("api source failed", err, "entity", entity.String(), "week", week.String())
			errs = append(errs, err)
		} else {
			events = append(events, FromSlots("api", slots)...)
		}
	}

	if s.getter != nil {
		for _, feed := range s.feedsFor(entity) {
			attempts++
			evs, err := s.feedEvents(ctx, feed, week)
			if err != nil {
				sourceErrors.WithLabelValues("ics").Inc()
				appLog.Error("ics source failed", err, "feed", feed.ID, "week", week.String())
				errs = append(errs, err)
				continue
			}
			events = append(events, evs...)
		}
	}

	if attempts > 0 && len(errs) == attempts {
		return nil, fmt.Errorf("%w: %w", ErrNoData, errors.Join(errs...))
	}
	return events, nil
}

func (s *Service) feedEvents(ctx context.Context, feed ics.Feed, week Week) ([]timegrid.Event, error) {
	parsed, err := ics.LoadFeeds(ctx, s.getter, []ics.Feed{feed})
	if err != nil {
		return nil, err
	}
	res, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      week.Start(s.loc),
		RangeEnd:        week.End(s.loc),
	})
	if err != nil {
		return nil, fmt.Errorf("ics feed %s: %w", feed.ID, err)
	}
	return ToEvents(res.Lessons, week, s.loc), nil
}

// Layout returns the week grid of entity, served from the cache while the
// underlying events are unchanged.
func (s *Service) Layout(ctx context.Context, entity Entity, week Week) (timegrid.Layout, error) {
	events, err := s.Week(ctx, entity, week)
	if err != nil {
		return timegrid.Layout{}, err
	}

	hash := cache.HashEvents(events, s.opts)
	if e, ok := s.cache.Lookup(ctx, entity.String(), week.String(), hash); ok {
		layoutRequests.WithLabelValues("hit").Inc()
		return e.Layout, nil
	}
	layoutRequests.WithLabelValues("miss").Inc()

	layout, err := timegrid.LayoutWeek(events, s.opts)
	if err != nil {
		return timegrid.Layout{}, err
	}
	layoutEvents.Observe(float64(len(events)))
	if len(layout.Skipped) > 0 {
		appLog.Info("events skipped", "entity", entity.String(), "week", week.String(), "ids", layout.Skipped)
	}

	if err := s.cache.Put(ctx, entity.String(), week.String(), hash, layout); err != nil {
		appLog.Error("cache put failed", err, "entity", entity.String(), "week", week.String())
	}
	return layout, nil
}
