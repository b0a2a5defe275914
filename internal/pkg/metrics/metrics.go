package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "engnotes"

// Skip reasons reported by the cascade.
const (
	SkipMissingBlob   = "missing_blob"
	SkipMissingRecord = "missing_record"
)

// Metrics owns the collectors exported on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	cascadeRecords  *prometheus.CounterVec
	cascadeBlobs    prometheus.Counter
	cascadeSkipped  *prometheus.CounterVec
	cascadeFailures *prometheus.CounterVec
	cascadeDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cascadeRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "records_deleted_total",
			Help:      "Catalog records removed by cascading deletes.",
		}, []string{"kind"}),
		cascadeBlobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "blobs_deleted_total",
			Help:      "PDF blobs removed by cascading deletes.",
		}),
		cascadeSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "skipped_total",
			Help:      "Blobs or records already gone when the cascade reached them.",
		}, []string{"reason"}),
		cascadeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "failures_total",
			Help:      "Cascading deletes aborted by a storage error.",
		}, []string{"kind"}),
		cascadeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "duration_seconds",
			Help:      "Wall time of cascading deletes by target kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.cascadeRecords,
		m.cascadeBlobs,
		m.cascadeSkipped,
		m.cascadeFailures,
		m.cascadeDuration,
		m.httpRequests,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CascadeRecordDeleted counts one removed record.
func (m *Metrics) CascadeRecordDeleted(kind string) {
	if m == nil {
		return
	}
	m.cascadeRecords.WithLabelValues(kind).Inc()
}

// CascadeBlobDeleted counts one removed blob.
func (m *Metrics) CascadeBlobDeleted() {
	if m == nil {
		return
	}
	m.cascadeBlobs.Inc()
}

// CascadeSkipped counts a blob or record that was already gone.
func (m *Metrics) CascadeSkipped(reason string) {
	if m == nil {
		return
	}
	m.cascadeSkipped.WithLabelValues(reason).Inc()
}

// CascadeFinished records the duration and, on error, a failure.
func (m *Metrics) CascadeFinished(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.cascadeDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		m.cascadeFailures.WithLabelValues(kind).Inc()
	}
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
