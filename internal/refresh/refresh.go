// Package refresh periodically recomputes the default week and its PNG
// preview on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"weekgrid/internal/capture"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/schedule"
)

// CaptureFunc writes a preview; capture.CalendarPNG in production.
type CaptureFunc func(ctx context.Context, opts capture.Options) error

// Job purges the layout cache, warms the default entity's current week and
// captures a fresh preview.
type Job struct {
	svc     *schedule.Service
	entity  string
	capture capture.Options
	capFn   CaptureFunc
	now     func() time.Time

	mu sync.Mutex
}

// NewJob returns a job for entity. An empty capture URL disables the
// preview step; an empty entity only purges the cache.
func NewJob(svc *schedule.Service, entity string, opts capture.Options) *Job {
	return &Job{
		svc:     svc,
		entity:  entity,
		capture: opts,
		capFn:   capture.CalendarPNG,
		now:     time.Now,
	}
}

// RunOnce performs a single refresh. Concurrent calls are serialized.
func (j *Job) RunOnce(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := j.now()
	purged, err := j.svc.Cache().Purge(ctx)
	if err != nil {
		return fmt.Errorf("refresh: purge cache: %w", err)
	}
	if j.entity == "" {
		appLog.Debug("refresh: cache purged", "entries", purged)
		return nil
	}

	entity, err := schedule.ParseEntity(j.entity)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	week := schedule.WeekOf(start.In(j.svc.Location()))

	layout, err := j.svc.Layout(ctx, entity, week)
	if err != nil {
		return fmt.Errorf("refresh: layout %s %s: %w", entity, week, err)
	}

	if j.capture.URL != "" {
		opts, err := j.capture.ForWeek(entity.String(), week.String())
		if err != nil {
			return err
		}
		if err := j.capFn(ctx, opts); err != nil {
			return fmt.Errorf("refresh: capture: %w", err)
		}
	}

	appLog.Info("refresh completed",
		"entity", entity.String(),
		"week", week.String(),
		"placements", len(layout.Placements),
		"purged", purged,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("refresh: bad schedule %q: %w", expr, err)
	}
	return nil
}

// Run executes job on the cron expression expr, in the service's
// timezone, until ctx is cancelled. A run that would overlap a still
// running one is skipped.
func Run(ctx context.Context, expr string, job *Job) error {
	if err := ValidateSchedule(expr); err != nil {
		return err
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(job.svc.Location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(expr, func() {
		if err := job.RunOnce(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	appLog.Info("refresh scheduler started", "schedule", expr, "entity", job.entity)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("refresh scheduler stopped")
	return nil
}

// cronLogger routes cron's own logging through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
