// Package metrics provides Prometheus metrics for location resolution
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// GeoMetrics contains Prometheus metrics for geographic resolution and author attachment.
// A nil *GeoMetrics is valid and records nothing.
type GeoMetrics struct {
	registry *prometheus.Registry

	resolutionsTotal     *prometheus.CounterVec
	conflictRetriesTotal *prometheus.CounterVec
	operationsTotal      *prometheus.CounterVec
	operationDuration    *prometheus.HistogramVec
	cacheLookupsTotal    *prometheus.CounterVec
	ingestRecordsTotal   *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewGeoMetrics creates and registers new geo metrics
func NewGeoMetrics(registry *prometheus.Registry) (*GeoMetrics, error) {
	m := &GeoMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *GeoMetrics) initMetrics() {
	m.resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_resolutions_total",
			Help: "Total number of resolved location nodes",
		},
		[]string{"kind", "outcome"}, // outcome: created, matched
	)

	m.conflictRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_conflict_retries_total",
			Help: "Units of work re-run after a uniqueness conflict",
		},
		[]string{"operation"},
	)

	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_operations_total",
			Help: "Total number of graph operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geo_operation_duration_seconds",
			Help:    "Time taken for graph operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"operation"},
	)

	m.cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"cache", "result"}, // result: hit, miss
	)

	m.ingestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geo_ingest_records_total",
			Help: "Author records processed by the ingest pipeline",
		},
		[]string{"status"},
	)

	m.collectors = []prometheus.Collector{
		m.resolutionsTotal,
		m.conflictRetriesTotal,
		m.operationsTotal,
		m.operationDuration,
		m.cacheLookupsTotal,
		m.ingestRecordsTotal,
	}
}

// Describe implements the Collector interface
func (m *GeoMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *GeoMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordResolution records one resolved node of the given kind
func (m *GeoMetrics) RecordResolution(kind string, created bool) {
	if m == nil {
		return
	}
	outcome := "matched"
	if created {
		outcome = "created"
	}
	m.resolutionsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordConflictRetry records a re-run caused by a uniqueness conflict
func (m *GeoMetrics) RecordConflictRetry(operation string) {
	if m == nil {
		return
	}
	m.conflictRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordOperation records the outcome and duration of an operation
func (m *GeoMetrics) RecordOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func (m *GeoMetrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordIngest records one processed ingest record
func (m *GeoMetrics) RecordIngest(status string) {
	if m == nil {
		return
	}
	m.ingestRecordsTotal.WithLabelValues(status).Inc()
}
