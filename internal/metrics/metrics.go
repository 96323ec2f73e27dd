// Package metrics provides Prometheus metrics for the MiniDrive store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// File operation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidrive_operations_total",
			Help: "Total file operations by kind and outcome",
		},
		[]string{"operation", "status"},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minidrive_bytes_uploaded_total",
			Help: "Total bytes uploaded into storage roots",
		},
	)

	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minidrive_bytes_downloaded_total",
			Help: "Total bytes downloaded out of storage roots",
		},
	)

	// Quota metrics
	quotaUsedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minidrive_quota_used_bytes",
			Help: "Bytes currently used in the active storage root",
		},
	)

	quotaUsedPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minidrive_quota_used_percent",
			Help: "Percent of quota used in the active storage root",
		},
	)

	// Preview metrics
	previewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidrive_previews_total",
			Help: "Total preview dispatches by strategy",
		},
		[]string{"strategy"},
	)

	// Auth metrics
	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minidrive_auth_attempts_total",
			Help: "Total authentication attempts",
		},
		[]string{"result"},
	)

	// Activity metrics
	activitySubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minidrive_activity_subscribers",
			Help: "Number of live activity feed subscribers",
		},
	)

	activityLinesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minidrive_activity_lines_total",
			Help: "Total activity log lines appended",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOperation records the outcome of a file operation.
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	operationsTotal.WithLabelValues(operation, status).Inc()
}

// AddBytesUploaded adds to the uploaded-bytes counter.
func AddBytesUploaded(n int64) {
	bytesUploaded.Add(float64(n))
}

// AddBytesDownloaded adds to the downloaded-bytes counter.
func AddBytesDownloaded(n int64) {
	bytesDownloaded.Add(float64(n))
}

// SetQuotaUsage sets the quota gauges for the active storage root.
func SetQuotaUsage(usedBytes int64, percent int) {
	quotaUsedBytes.Set(float64(usedBytes))
	quotaUsedPercent.Set(float64(percent))
}

// RecordPreview records a preview dispatch by strategy.
func RecordPreview(strategy string) {
	previewsTotal.WithLabelValues(strategy).Inc()
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	authAttemptsTotal.WithLabelValues(result).Inc()
}

// SetActivitySubscribers sets the live activity subscriber gauge.
func SetActivitySubscribers(n int64) {
	activitySubscribers.Set(float64(n))
}

// RecordActivityLine counts an appended activity line.
func RecordActivityLine() {
	activityLinesTotal.Inc()
}
