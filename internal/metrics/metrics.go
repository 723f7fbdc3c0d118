// README: Prometheus collectors for turns, searches, extraction and notifications.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinecall_turns_total",
			Help: "Caller turns handled, by state at the end of the turn",
		},
		[]string{"state"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dinecall_turn_duration_seconds",
			Help:    "Time from utterance to reply",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
	)

	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinecall_searches_total",
			Help: "Provider searches by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dinecall_search_duration_seconds",
			Help:    "Duration of provider searches including travel-time lookups",
			Buckets: prometheus.DefBuckets,
		},
	)

	SearchCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinecall_search_cache_total",
			Help: "Search cache lookups by result",
		},
		[]string{"result"},
	)

	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinecall_extraction_failures_total",
			Help: "Extractor calls that produced no usable update",
		},
		[]string{"extractor"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dinecall_notifications_total",
			Help: "Result notifications by outcome",
		},
		[]string{"outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dinecall_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)
)
