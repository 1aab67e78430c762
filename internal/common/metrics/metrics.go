package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssistantTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Total number of assistant turns handled, by resolved intent",
		},
		[]string{"intent", "entity"},
	)

	AssistantTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_turn_duration_seconds",
			Help:    "Duration of one assistant turn in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	AssistantLookupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_lookup_failures_total",
			Help: "Total number of failed collaborator lookups",
		},
		[]string{"intent"},
	)

	AssistantEmptyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_empty_results_total",
			Help: "Total number of lookups that returned no rows",
		},
		[]string{"entity"},
	)

	AssistantPulseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_pulse_errors_total",
			Help: "Total number of interaction pulse storage failures",
		},
		[]string{"operation"},
	)

	AssistantActiveTurns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_active_turns",
			Help: "Number of turns currently in progress",
		},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)
