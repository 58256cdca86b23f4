package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonetuner_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tonetuner_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RewritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tonetuner_rewrites_total",
			Help: "Total number of rewrite jobs by outcome.",
		},
		[]string{"status"},
	)

	RewriteLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tonetuner_rewrite_latency_seconds",
			Help:    "Latency of the outbound generation call including retries.",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34, 60, 120},
		},
	)

	RewriteRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tonetuner_rewrite_retries_total",
			Help: "Total number of retried generation calls.",
		},
	)

	RewriteQueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tonetuner_rewrite_queue_length",
			Help: "Number of rewrite jobs waiting for a slot.",
		},
	)

	RewriteConcurrentTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tonetuner_rewrite_concurrent_tasks",
			Help: "Number of rewrite jobs currently executing.",
		},
	)

	RewriteQueueRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tonetuner_rewrite_queue_rejected_total",
			Help: "Total number of jobs rejected because the queue was full.",
		},
	)

	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tonetuner_quota_rejections_total",
			Help: "Total number of rewrite requests rejected for exhausted quota.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RewritesTotal,
		RewriteLatency,
		RewriteRetriesTotal,
		RewriteQueueLength,
		RewriteConcurrentTasks,
		RewriteQueueRejectedTotal,
		QuotaRejectionsTotal,
	)
}
