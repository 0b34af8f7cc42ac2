// Package metrics provides Prometheus metrics for the detection service.
//
// Exposed at /metrics by the HTTP server:
//   - intelliroad_requests_total: Requests by route and status
//   - intelliroad_request_duration_seconds: Request latency by route
//   - intelliroad_inference_duration_seconds: Detector latency by engine
//   - intelliroad_detections_total: Detections by class
//   - intelliroad_decode_failures_total: Rejected uploads and files by source
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliroad_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	// RequestDuration tracks HTTP request duration in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intelliroad_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// InferenceDuration tracks one detector call in seconds.
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intelliroad_inference_duration_seconds",
			Help:    "Model inference duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"engine"},
	)

	// DetectionsTotal counts detections per class.
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliroad_detections_total",
			Help: "Total number of detected objects",
		},
		[]string{"class"},
	)

	// DecodeFailures counts inputs no decoder could read.
	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intelliroad_decode_failures_total",
			Help: "Total number of images that could not be decoded",
		},
		[]string{"source"},
	)
)

// RecordRequest records a finished HTTP request.
func RecordRequest(route string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordInference records one detector call and its detections.
func RecordInference(engine string, duration time.Duration, labels []string) {
	InferenceDuration.WithLabelValues(engine).Observe(duration.Seconds())
	for _, l := range labels {
		DetectionsTotal.WithLabelValues(l).Inc()
	}
}

// RecordDecodeFailure records an input that could not be decoded.
func RecordDecodeFailure(source string) {
	DecodeFailures.WithLabelValues(source).Inc()
}
