package schedule

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	layoutRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weekgrid",
		Name:      "layout_requests_total",
		Help:      "Week layouts served, by cache result.",
	}, []string{"cache"})

	sourceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weekgrid",
		Name:      "source_errors_total",
		Help:      "Failed upstream timetable reads, by source kind.",
	}, []string{"source"})

	layoutEvents = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "weekgrid",
		Name:      "layout_events",
		Help:      "Events per computed week layout.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)
