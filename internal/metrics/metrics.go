// Package metrics declares the Prometheus collectors of the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "presenter_studio"

var (
	providerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Requests sent to generative providers, by provider, operation and outcome.",
		},
		[]string{"provider", "op", "outcome"},
	)
	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Latency of single provider HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "op"},
	)
	taskWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_task_wait_seconds",
			Help:      "Time from submission until a provider task reached a final state.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 8), // 5s .. 640s
		},
		[]string{"provider", "outcome"},
	)
	phaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of session phases.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		},
		[]string{"phase", "outcome"},
	)
	sessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session status transitions, by target status.",
		},
		[]string{"status"},
	)
	coolingWait = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cooling_wait_seconds_total",
		Help:      "Total time spent waiting for the provider cooling period.",
	})
	segmentCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segment_cache_hits_total",
		Help:      "Segment requests served from an already downloaded clip.",
	})
	mediaOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_operations_total",
			Help:      "ffmpeg operations run, by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	enhancementStages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enhancement_stages_total",
			Help:      "Enhancement stages, by stage and outcome (applied, skipped, failed).",
		},
		[]string{"stage", "outcome"},
	)
)

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func ProviderRequest(provider, op string, took time.Duration, err error) {
	providerRequests.WithLabelValues(provider, op, Outcome(err)).Inc()
	providerRequestDuration.WithLabelValues(provider, op).Observe(took.Seconds())
}

func TaskWait(provider string, took time.Duration, err error) {
	taskWait.WithLabelValues(provider, Outcome(err)).Observe(took.Seconds())
}

func Phase(phase string, took time.Duration, err error) {
	phaseDuration.WithLabelValues(phase, Outcome(err)).Observe(took.Seconds())
}

func SessionTransition(status string) {
	sessionTransitions.WithLabelValues(status).Inc()
}

func CoolingWait(d time.Duration) {
	coolingWait.Add(d.Seconds())
}

func SegmentCacheHit() {
	segmentCacheHits.Inc()
}

func MediaOperation(op string, err error) {
	mediaOperations.WithLabelValues(op, Outcome(err)).Inc()
}

func EnhancementStage(stage, outcome string) {
	enhancementStages.WithLabelValues(stage, outcome).Inc()
}
