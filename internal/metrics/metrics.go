package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var documentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "documents_ingested_total",
	Help: "Documents processed by the ingestion pipeline, by outcome",
}, []string{"outcome"})

var ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "document_ingest_duration_seconds",
	Help:    "Wall time spent ingesting one document end to end.",
	Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureDocumentIngest(outcome string, timeElapsed time.Duration) {
	documentsIngested.WithLabelValues(outcome).Inc()
	ingestDuration.Observe(timeElapsed.Seconds())
}

// HttpStatusRecorder captures the status code a handler writes so the
// request counter can be labelled with it.
type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}
