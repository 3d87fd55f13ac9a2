package prometheus

import (
	"strconv"
	"time"
)

// Default buckets.
var (
	DefaultBuildDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultIndexDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RecordMetrics holds the metrics of record construction, indexing and
// serving.
type RecordMetrics struct {
	RecordsBuilt        CounterVec
	ExtractionFailures  CounterVec
	BuildDuration       HistogramVec
	IndexOperations     CounterVec
	IndexDuration       HistogramVec
	IndexedDocuments    CounterVec
	CacheHits           CounterVec
	CacheMisses         CounterVec
	EventsPublished     CounterVec
	IngestMessages      CounterVec
	HTTPRequests        CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
}

// NewRecordMetrics registers every record metric on collector.
func NewRecordMetrics(collector Collector) *RecordMetrics {
	return &RecordMetrics{
		RecordsBuilt:        collector.RegisterCounter("records_built_total", "Records constructed from structures", "kind", "outcome"),
		ExtractionFailures:  collector.RegisterCounter("extraction_failures_total", "Descriptor extraction failures reported to the error policy", "kind", "step"),
		BuildDuration:       collector.RegisterHistogram("record_build_duration_seconds", "Record construction duration", DefaultBuildDurationBuckets, "kind"),
		IndexOperations:     collector.RegisterCounter("index_operations_total", "Search backend operations", "operation", "outcome"),
		IndexDuration:       collector.RegisterHistogram("index_operation_duration_seconds", "Search backend operation duration", DefaultIndexDurationBuckets, "operation"),
		IndexedDocuments:    collector.RegisterCounter("indexed_documents_total", "Documents written to the search backend", "kind", "outcome"),
		CacheHits:           collector.RegisterCounter("cache_hits_total", "Record cache hits", "kind"),
		CacheMisses:         collector.RegisterCounter("cache_misses_total", "Record cache misses", "kind"),
		EventsPublished:     collector.RegisterCounter("events_published_total", "Record events published", "topic", "outcome"),
		IngestMessages:      collector.RegisterCounter("ingest_messages_total", "Ingest messages consumed", "outcome"),
		HTTPRequests:        collector.RegisterCounter("http_requests_total", "HTTP requests", "method", "route", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route"),
		HTTPActiveRequests:  collector.RegisterGauge("http_active_requests", "HTTP requests in flight", "method"),
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// ObserveBuild records one record construction.
func (m *RecordMetrics) ObserveBuild(kind string, d time.Duration, err error) {
	m.RecordsBuilt.WithLabelValues(kind, outcome(err)).Inc()
	m.BuildDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ExtractionFailure counts a failure reported at step.
func (m *RecordMetrics) ExtractionFailure(kind, step string) {
	m.ExtractionFailures.WithLabelValues(kind, step).Inc()
}

// ObserveIndexOp records one search backend call.
func (m *RecordMetrics) ObserveIndexOp(op string, d time.Duration, err error) {
	m.IndexOperations.WithLabelValues(op, outcome(err)).Inc()
	m.IndexDuration.WithLabelValues(op).Observe(d.Seconds())
}

// DocumentsIndexed counts written and rejected documents.
func (m *RecordMetrics) DocumentsIndexed(kind string, indexed, failed int) {
	m.IndexedDocuments.WithLabelValues(kind, OutcomeSuccess).Add(float64(indexed))
	m.IndexedDocuments.WithLabelValues(kind, OutcomeFailure).Add(float64(failed))
}

// CacheAccess counts a cache lookup.
func (m *RecordMetrics) CacheAccess(kind string, hit bool) {
	if hit {
		m.CacheHits.WithLabelValues(kind).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(kind).Inc()
}

// EventPublished counts a published event.
func (m *RecordMetrics) EventPublished(topic string, err error) {
	m.EventsPublished.WithLabelValues(topic, outcome(err)).Inc()
}

// IngestMessage counts a consumed ingest message.
func (m *RecordMetrics) IngestMessage(err error) {
	m.IngestMessages.WithLabelValues(outcome(err)).Inc()
}

// ObserveHTTP records one served request.
func (m *RecordMetrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

//Personal.AI order the ending
