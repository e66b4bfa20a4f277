// Package metrics exposes the service's Prometheus instrumentation.
//
// All collectors are registered on the default registerer and served by
// the /metrics endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iptrail"

var (
	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Client IP resolution attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	recordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Record store attempts by outcome (stored, duplicate, error).",
		},
		[]string{"outcome"},
	)

	storeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_duration_seconds",
			Help:      "Latency of synchronous record stores, including the duplicate check.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	asyncRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "async_rejections_total",
			Help:      "Asynchronous store submissions rejected by a saturated executor.",
		},
	)

	asyncQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "async_queue_depth",
			Help:      "Tasks currently waiting in the async executor queue.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, path, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordResolution counts one resolution attempt for a source.
func RecordResolution(source string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	resolutionsTotal.WithLabelValues(source, outcome).Inc()
}

// RecordStoreOutcome counts one store attempt outcome.
func RecordStoreOutcome(outcome string) {
	recordsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStoreDuration records the latency of a synchronous store.
func ObserveStoreDuration(d time.Duration) {
	storeDuration.Observe(d.Seconds())
}

// RecordAsyncRejection counts one saturated-executor rejection.
func RecordAsyncRejection() {
	asyncRejectionsTotal.Inc()
}

// SetAsyncQueueDepth updates the executor queue depth gauge.
func SetAsyncQueueDepth(depth int) {
	asyncQueueDepth.Set(float64(depth))
}

// RecordHTTPRequest counts one served HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
