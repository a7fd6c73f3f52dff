package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsRecorded counts accepted price observations.
	eventsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_monitor_events_recorded_total",
		Help: "Total number of price observations accepted into the store",
	})

	// eventsRejected counts observations rejected at the boundary
	// (validation failures and out-of-order timestamps).
	eventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_monitor_events_rejected_total",
		Help: "Total number of price observations rejected at the boundary",
	})

	// sourceErrors counts failed or timed-out source fetches.
	sourceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_monitor_source_errors_total",
		Help: "Total number of price source fetch failures",
	})

	// refreshDuration tracks per-key refresh latency.
	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "price_monitor_refresh_duration_seconds",
		Help:    "Time taken to refresh a single watched key",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	// watchedKeys tracks how many keys are on the refresh schedule.
	watchedKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "price_monitor_watched_keys",
		Help: "Number of (store, item) pairs currently being monitored",
	})
)
