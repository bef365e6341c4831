// Package metrics provides Prometheus metrics for AssetHub.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Serializer run results.
const (
	SerializerOK       = "ok"
	SerializerExitErr  = "exit_error"
	SerializerStartErr = "start_error"
)

// Materialization outcomes of a File's data.
const (
	// OutcomeFresh means the existing sidecar was current.
	OutcomeFresh = "fresh"
	// OutcomeGenerated means the sidecar was missing and produced by the serializer.
	OutcomeGenerated = "generated"
	// OutcomeRepaired means a stale sidecar was regenerated.
	OutcomeRepaired = "repaired"
	// OutcomeStale means the sidecar was still stale after regeneration.
	OutcomeStale = "stale"
	// OutcomeFailed means no data could be produced.
	OutcomeFailed = "failed"
)

var (
	serializerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_serializer_runs_total",
			Help: "Total number of external serializer invocations",
		},
		[]string{"result"},
	)

	serializerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assethub_serializer_duration_seconds",
			Help:    "External serializer run time in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	materializations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_materializations_total",
			Help: "Total number of asset data materializations by outcome",
		},
		[]string{"outcome"},
	)

	cachedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assethub_cached_files",
			Help: "Number of asset files held by the API cache",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assethub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assethub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordSerializerRun records one serializer invocation.
func RecordSerializerRun(result string, d time.Duration) {
	serializerRuns.WithLabelValues(result).Inc()
	serializerDuration.Observe(d.Seconds())
}

// RecordMaterialization records how a File's data was produced.
func RecordMaterialization(outcome string) {
	materializations.WithLabelValues(outcome).Inc()
}

// SetCachedFiles sets the number of files held by the API cache.
func SetCachedFiles(n int) {
	cachedFiles.Set(float64(n))
}

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
