package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	gradingRequestsTotal   *prometheus.CounterVec
	gradingDurationSeconds prometheus.Histogram
	uploadRejectedTotal    *prometheus.CounterVec
	artifactDownloadsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		gradingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_requests_total",
			Help: "Total number of grading runs by outcome.",
		}, []string{"outcome"})

		gradingDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grading_duration_seconds",
			Help:    "End-to-end duration of grading runs including the engine call.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Number of rejected submission files by reason.",
		}, []string{"reason"})

		artifactDownloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artifact_downloads_total",
			Help: "Number of report artifact downloads by kind.",
		}, []string{"kind"})

		prometheus.MustRegister(gradingRequestsTotal, gradingDurationSeconds, uploadRejectedTotal, artifactDownloadsTotal)
	})
}

// GradingRequests exposes the counter for grading runs.
func GradingRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRequestsTotal
}

// GradingDuration exposes the histogram for grading run latency.
func GradingDuration() prometheus.Histogram {
	RegisterMetrics()
	return gradingDurationSeconds
}

// UploadRejected exposes the counter for rejected submission files.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// ArtifactDownloads exposes the counter for artifact downloads.
func ArtifactDownloads() *prometheus.CounterVec {
	RegisterMetrics()
	return artifactDownloadsTotal
}
