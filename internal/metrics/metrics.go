package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmatch_matches_generated_total",
			Help: "Number of match lists generated, by sort strategy",
		},
		[]string{"strategy"},
	)

	MatchGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netmatch_match_generation_duration_seconds",
			Help:    "Time spent generating a match list",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	PersonalizationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmatch_personalization_outcomes_total",
			Help: "Personalization passes by cold-start phase and outcome status",
		},
		[]string{"phase", "status"},
	)

	WeightAdaptations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netmatch_weight_adaptations_total",
			Help: "Number of per-user weight vector adaptations",
		},
	)

	InsightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmatch_insights_generated_total",
			Help: "Algorithm insights generated, by type",
		},
		[]string{"type"},
	)

	BehaviorsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmatch_behaviors_tracked_total",
			Help: "Behavior events accepted for tracking, by type",
		},
		[]string{"type"},
	)

	BestEffortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netmatch_best_effort_failures_total",
			Help: "Swallowed failures on non-critical paths, by operation",
		},
		[]string{"operation"},
	)
)
