package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "humrah",
		Subsystem: "verification",
		Name:      "sessions_started_total",
		Help:      "Verification sessions created.",
	})

	PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "humrah",
		Subsystem: "verification",
		Name:      "pipeline_outcomes_total",
		Help:      "Terminal pipeline outcomes by status.",
	}, []string{"status"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "humrah",
		Subsystem: "verification",
		Name:      "pipeline_duration_seconds",
		Help:      "Wall time of one pipeline run.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	MediaDestructionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "humrah",
		Subsystem: "verification",
		Name:      "media_destruction_failures_total",
		Help:      "Raw videos that exhausted the destruction retry budget.",
	})

	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "humrah",
		Subsystem: "verification",
		Name:      "sessions_swept_total",
		Help:      "Stale sessions transitioned to EXPIRED by the sweep.",
	})
)
