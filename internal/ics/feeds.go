package ics

import (
	"context"
	"errors"
	"fmt"

	"weekgrid/internal/fetch"
	appLog "weekgrid/internal/log"
)

// Getter is the part of fetch.Fetcher used to download feeds.
type Getter interface {
	Get(ctx context.Context, req fetch.Request) (fetch.Result, error)
}

// LoadFeeds downloads and parses every feed. A failing feed does not stop
// the others: its error is joined into the returned error and the events
// of the remaining feeds are still returned.
func LoadFeeds(ctx context.Context, g Getter, feeds []Feed) ([]ParsedEvent, error) {
	var (
		events []ParsedEvent
		errs   []error
	)
	for _, feed := range feeds {
		res, err := g.Get(ctx, fetch.Request{
			Name:   feed.ID,
			URL:    feed.URL,
			Accept: "text/calendar",
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("ics feed %s: %w", feed.ID, err))
			continue
		}

		parsed, err := ParseICS(feed, res.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "feed", feed.ID, "url", fetch.RedactURL(feed.URL))
			errs = append(errs, fmt.Errorf("ics feed %s: %w", feed.ID, err))
			continue
		}
		events = append(events, parsed...)
	}
	return events, errors.Join(errs...)
}
