package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResumesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_resumes_scored_total",
			Help: "Total number of resumes scored",
		},
		[]string{"source"},
	)

	ExtractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_extraction_failures_total",
			Help: "Total number of resumes whose text could not be extracted",
		},
		[]string{"format"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resume_matcher_batch_duration_seconds",
			Help:    "Duration of batch scoring in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"source"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "resume_matcher_batch_size",
			Help:    "Number of resumes per scoring batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_cache_lookups_total",
			Help: "Score cache lookups by result",
		},
		[]string{"result"},
	)

	QueueJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_queue_jobs_total",
			Help: "Score jobs consumed from the queue by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resume_matcher_http_rejected_total",
			Help: "HTTP requests rejected before scoring",
		},
		[]string{"reason"},
	)
)

// 标签取值
const (
	SourceSync  = "sync"
	SourceQueue = "queue"
	SourceCLI   = "cli"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"

	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDropped   = "dropped"
	OutcomeRequeued  = "requeued"

	ReasonRateLimited  = "rate_limited"
	ReasonInvalid      = "invalid_request"
	ReasonUnauthorized = "unauthorized"
)
