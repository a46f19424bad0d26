package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GradingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegrader_gradings_total",
			Help: "Total number of graded submissions",
		},
		[]string{"tier", "outcome"}, // outcome: "correct", "incorrect"
	)

	GradingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codegrader_grading_duration_ms",
			Help:    "End to end grading duration in milliseconds",
			Buckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"tier"},
	)

	SandboxRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegrader_sandbox_runs_total",
			Help: "Total number of sandbox invocations",
		},
		[]string{"mode", "failure"}, // failure: "none", "timeout", "memory_limit", ...
	)

	PersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegrader_persistence_failures_total",
			Help: "Total number of failed submission or completion writes",
		},
		[]string{"operation"},
	)

	MetadataFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codegrader_testcase_lookup_failures_total",
			Help: "Test case lookups that failed and degraded to a fallback tier",
		},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegrader_challenge_cache_requests_total",
			Help: "Challenge metadata cache lookups",
		},
		[]string{"kind", "result"}, // result: "hit", "miss", "error"
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codegrader_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiter",
		},
		[]string{"reason"},
	)
)
