package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcweather_api_calls_total",
			Help: "Total Visual Crossing timeline API calls",
		},
		[]string{"kind", "status"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vcweather_api_latency_seconds",
			Help:    "Timeline API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	DaysParsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcweather_days_parsed_total",
			Help: "Total daily records mapped from timeline responses",
		},
	)

	ParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vcweather_parse_failures_total",
			Help: "Timeline responses rejected by the response mapper",
		},
	)

	RunsArchived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vcweather_runs_archived_total",
			Help: "Fetch runs written to the archive",
		},
		[]string{"success"},
	)
)
