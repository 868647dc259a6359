// Package metrics holds the process-wide Prometheus collectors, all under the
// "onboarding" namespace.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "onboarding"

// Job metrics are labelled by Zeebe task type.
var (
	JobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "completed_total",
		Help:      "Onboarding jobs completed, by task type",
	}, []string{"task_type"})

	JobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "failed_total",
		Help:      "Onboarding jobs reported as failed, by task type and error code",
	}, []string{"task_type", "error_code"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "duration_seconds",
		Help:      "Wall time spent in a job handler",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"task_type"})

	JobsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "job",
		Name:      "in_flight",
		Help:      "Jobs currently being handled",
	}, []string{"task_type"})
)

// Engine metrics.
var (
	// StepResolutions counts resolved wizard states by kind ("step1".."step4",
	// "approved", "pending").
	StepResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "step_resolutions_total",
		Help:      "Wizard states produced by the step resolver",
	}, []string{"state"})

	WizardActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wizard_actions_total",
		Help:      "Wizard actions dispatched, by action and outcome",
	}, []string{"action", "result"})

	MarketplaceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "marketplace",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the marketplace REST collaborator",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	CacheFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_fallbacks_total",
		Help:      "Loads that used the cached seller status after an application fetch failed",
	})
)
