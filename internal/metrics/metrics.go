// Package metrics holds the service's prometheus collectors, exposed on
// /metrics by the HTTP server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_documents_processed_total",
			Help: "Documents whose pipeline run reached a terminal status",
		},
		[]string{"status"},
	)
	PagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_pages_processed_total",
			Help: "Pages attempted by the pipeline",
		},
		[]string{"outcome"},
	)
	PageDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ocr_page_processing_duration_seconds",
			Help:    "Duration of a single page's full processing chain",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	CapabilityDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_capability_degraded_total",
			Help: "Best-effort capability calls that failed and were skipped",
		},
		[]string{"capability"},
	)
	UploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ocr_uploads_total",
			Help: "Accepted document uploads",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DocumentsProcessed,
		PagesProcessed,
		PageDuration,
		CapabilityDegraded,
		UploadsTotal,
	)
}
