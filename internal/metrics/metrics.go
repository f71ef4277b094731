package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outfit_jobs_enqueued_total",
			Help: "Generation jobs accepted, by quality and dispatch path",
		},
		[]string{"quality", "dispatch"}, // dispatch: "queue" or "inline"
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outfit_jobs_finished_total",
			Help: "Generation jobs that reached a terminal state",
		},
		[]string{"quality", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outfit_job_duration_seconds",
			Help:    "Time from processing start to terminal state",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"quality"},
	)

	GenerationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outfit_generation_calls_total",
			Help: "Calls to the image generation API, by outcome",
		},
		[]string{"outcome"}, // "ok", "upstream_error", "no_image", "transport_error", "rejected"
	)

	FeedbackRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outfit_feedback_recorded_total",
			Help: "Feedback events recorded",
		},
		[]string{"kind"}, // "like" or "dislike"
	)

	PreferenceUpdateErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outfit_preference_update_errors_total",
			Help: "Preference updates that failed after feedback was recorded",
		},
	)
)
