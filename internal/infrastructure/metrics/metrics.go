package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	DocumentReads   *prometheus.CounterVec
	DocumentWrites  *prometheus.CounterVec
	DocumentBytes   prometheus.Gauge
	ExternalChanges prometheus.Counter
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		DocumentReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songlist_document_reads_total",
				Help: "Document reads by backend and result (ok, missing, error, invalid)",
			},
			[]string{"backend", "result"},
		),
		DocumentWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songlist_document_writes_total",
				Help: "Document writes by backend and result (ok, error, invalid)",
			},
			[]string{"backend", "result"},
		),
		DocumentBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "songlist_document_bytes",
				Help: "Size of the last document written",
			},
		),
		ExternalChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "songlist_document_external_changes_total",
				Help: "Changes to the document file not made by this process",
			},
		),
	}

	m.Registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.DocumentReads,
		m.DocumentWrites,
		m.DocumentBytes,
		m.ExternalChanges,
	)

	return m
}
