// metrics.go - Prometheus collectors for OCR calls, extraction outcomes and HTTP traffic

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service exports. A nil *Metrics records nothing.
type Metrics struct {
	OCRAttempts      *prometheus.CounterVec
	OCRFailures      *prometheus.CounterVec
	OCRLatency       *prometheus.HistogramVec
	BackoffSeconds   prometheus.Counter
	Extractions      *prometheus.CounterVec
	PlatformReads    *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPResponseTime *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OCRAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livecommerce_ocr_attempts_total",
			Help: "OCR provider attempts by provider and result",
		}, []string{"provider", "result"}),

		OCRFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livecommerce_ocr_failures_total",
			Help: "Failed OCR attempts by error kind",
		}, []string{"kind"}),

		OCRLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livecommerce_ocr_latency_seconds",
			Help:    "OCR provider response time in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 7.5, 10, 15, 20, 30, 45},
		}, []string{"provider"}),

		BackoffSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livecommerce_ocr_backoff_seconds_total",
			Help: "Time spent waiting between OCR retries",
		}),

		Extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livecommerce_extractions_total",
			Help: "Extract-metrics calls by result",
		}, []string{"result"}),

		PlatformReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livecommerce_platform_readings_total",
			Help: "Platform readings with a GMV, by platform",
		}, []string{"platform"}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livecommerce_ocr_cache_lookups_total",
			Help: "OCR reading cache lookups by result",
		}, []string{"result"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livecommerce_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),

		HTTPResponseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "livecommerce_http_response_time_seconds",
			Help:    "HTTP response time in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "path"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OCRAttempts,
			m.OCRFailures,
			m.OCRLatency,
			m.BackoffSeconds,
			m.Extractions,
			m.PlatformReads,
			m.CacheLookups,
			m.HTTPRequests,
			m.HTTPResponseTime,
		)
	}
	return m
}

// RecordAttempt records one provider call.
func (m *Metrics) RecordAttempt(provider string, elapsed time.Duration, errKind string) {
	if m == nil {
		return
	}
	m.OCRLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if errKind == "" {
		m.OCRAttempts.WithLabelValues(provider, "success").Inc()
		return
	}
	m.OCRAttempts.WithLabelValues(provider, "error").Inc()
	m.OCRFailures.WithLabelValues(errKind).Inc()
}

// RecordBackoff adds a retry wait.
func (m *Metrics) RecordBackoff(d time.Duration) {
	if m == nil {
		return
	}
	m.BackoffSeconds.Add(d.Seconds())
}

// RecordExtraction records a finished extract-metrics call and its platforms.
func (m *Metrics) RecordExtraction(success bool, platforms []string) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.Extractions.WithLabelValues(result).Inc()
	for _, p := range platforms {
		m.PlatformReads.WithLabelValues(p).Inc()
	}
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordHTTP records one served request.
func (m *Metrics) RecordHTTP(method, path, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPResponseTime.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
