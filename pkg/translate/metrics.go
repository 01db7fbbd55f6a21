package translate

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess   = "success"
	statusError     = "error"
	statusCancelled = "cancelled"
)

var (
	// Provider request metrics, labelled by endpoint path
	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowlibre_provider_requests_total",
			Help: "Total number of requests sent to the translation provider",
		},
		[]string{"endpoint", "status"},
	)

	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowlibre_provider_request_duration_seconds",
			Help:    "Duration of requests to the translation provider in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"endpoint", "status"},
	)

	// Payload metrics
	translationRequestSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowlibre_translation_request_size_bytes",
			Help:    "Size of translation request text in bytes",
			Buckets: []float64{8, 16, 32, 64, 128, 256, 512, 1024},
		},
	)

	translationResponseSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowlibre_translation_response_size_bytes",
			Help:    "Size of translated text in bytes",
			Buckets: []float64{8, 16, 32, 64, 128, 256, 512, 1024},
		},
	)
)

// MetricsCollector records provider metrics for a client.
type MetricsCollector struct{}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordRequest records the outcome and latency of one provider request.
func (mc *MetricsCollector) RecordRequest(endpoint string, duration time.Duration, err error) {
	status := requestStatus(err)
	providerRequestsTotal.WithLabelValues(endpoint, status).Inc()
	providerRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

// RecordTranslationSize records request and response text sizes of a successful translation.
func (mc *MetricsCollector) RecordTranslationSize(requestSize, responseSize int) {
	translationRequestSize.Observe(float64(requestSize))
	translationResponseSize.Observe(float64(responseSize))
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return statusSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return statusCancelled
	default:
		return statusError
	}
}
