package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiva_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Analysis Metrics
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_analyses_total",
			Help: "Total number of media analyses",
		},
		[]string{"kind"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiva_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"kind"},
	)

	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_suggestions_total",
			Help: "Total number of suggestions emitted",
		},
		[]string{"suggestion"},
	)

	HeuristicFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_heuristic_failures_total",
			Help: "Heuristics that could not measure their statistic",
		},
		[]string{"heuristic"},
	)

	// Transform Metrics
	TransformsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_transforms_total",
			Help: "Total number of transforms applied",
		},
		[]string{"action", "status"},
	)

	TransformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiva_transform_duration_seconds",
			Help:    "Transform duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27 minutes
		},
		[]string{"action"},
	)

	// Resampler Metrics
	ResampleStrategyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_resample_strategy_total",
			Help: "Resample calls by the strategy that produced the output",
		},
		[]string{"strategy"},
	)

	// Intent Metrics
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_intents_total",
			Help: "Total number of classified voice commands",
		},
		[]string{"intent"},
	)

	// Job Metrics
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_jobs_created_total",
			Help: "Total number of transform jobs created",
		},
		[]string{"action"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_jobs_completed_total",
			Help: "Total number of finished transform jobs",
		},
		[]string{"status"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aiva_jobs_in_progress",
			Help: "Number of jobs currently being processed",
		},
	)

	JobQueueTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aiva_job_queue_time_seconds",
			Help:    "Time jobs spend waiting in queue",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aiva_queue_depth",
			Help: "Number of messages waiting in a queue",
		},
		[]string{"queue"},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aiva_active_workers",
			Help: "Number of workers with a live heartbeat",
		},
	)

	// External tool Metrics
	ExternalToolRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_external_tool_runs_total",
			Help: "Total number of external media tool invocations",
		},
		[]string{"tool", "status"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aiva_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_storage_bytes_transferred_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Webhook Metrics
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_webhook_deliveries_total",
			Help: "Total number of job callback deliveries",
		},
		[]string{"event", "status"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aiva_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordAnalysis records a finished analysis and the suggestions it produced
func RecordAnalysis(kind string, duration float64, suggestionIDs []string) {
	AnalysesTotal.WithLabelValues(kind).Inc()
	AnalysisDuration.WithLabelValues(kind).Observe(duration)
	for _, id := range suggestionIDs {
		SuggestionsTotal.WithLabelValues(id).Inc()
	}
}

// RecordHeuristicFailure records a heuristic that produced no statistic
func RecordHeuristicFailure(heuristic string) {
	HeuristicFailuresTotal.WithLabelValues(heuristic).Inc()
}

// RecordTransform records a transform outcome
func RecordTransform(action, status string, duration float64) {
	TransformsTotal.WithLabelValues(action, status).Inc()
	TransformDuration.WithLabelValues(action).Observe(duration)
}

// RecordResample records which resample strategy served a call
func RecordResample(strategy string) {
	ResampleStrategyTotal.WithLabelValues(strategy).Inc()
}

// RecordIntent records a classified intent
func RecordIntent(intent string) {
	IntentsTotal.WithLabelValues(intent).Inc()
}

// RecordJobCreated records a job creation
func RecordJobCreated(action string) {
	JobsCreatedTotal.WithLabelValues(action).Inc()
}

// RecordJobCompleted records a job completion
func RecordJobCompleted(status string) {
	JobsCompletedTotal.WithLabelValues(status).Inc()
}

// UpdateJobsInProgress sets the number of jobs being processed
func UpdateJobsInProgress(inProgress int) {
	JobsInProgress.Set(float64(inProgress))
}

// RecordJobQueueTime records how long a job waited before a worker picked it up
func RecordJobQueueTime(seconds float64) {
	JobQueueTime.Observe(seconds)
}

// UpdateQueueDepth sets the depth of a queue
func UpdateQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// UpdateActiveWorkers sets the number of live workers
func UpdateActiveWorkers(count int) {
	ActiveWorkers.Set(float64(count))
}

// RecordExternalToolRun records an ffmpeg, ffprobe or whisper invocation
func RecordExternalToolRun(tool string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	ExternalToolRunsTotal.WithLabelValues(tool, status).Inc()
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordWebhookDelivery records the outcome of a job callback
func RecordWebhookDelivery(event string, delivered bool) {
	status := "delivered"
	if !delivered {
		status = "failed"
	}
	WebhookDeliveriesTotal.WithLabelValues(event, status).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
