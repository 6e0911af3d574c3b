// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	responseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "HTTP response body size in bytes.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 8),
		},
		[]string{"route"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed.",
		},
	)

	commitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Committed sheet versions by operation.",
		},
		[]string{"op"},
	)

	cycleRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_rejections_total",
			Help:      "Edits rejected because they would close a reference cycle.",
		},
	)

	recalculatedCells = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculated_cells",
			Help:      "Cells whose value changed in one commit.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	sheetsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sheets",
			Help:      "Sheets held by the engine.",
		},
	)

	sessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Users currently logged in.",
		},
	)

	archiveWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_writes_total",
			Help:      "Archive record writes by result.",
		},
		[]string{"result"},
	)

	archiveDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_dropped_total",
			Help:      "Records dropped because the archive queue was full.",
		},
	)

	archiveQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_queue_depth",
			Help:      "Records waiting to be archived.",
		},
	)
)

const namespace = "shticell"

// Archive write results.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultDuplicate = "duplicate"
	ResultOpen      = "circuit_open"
)

// RecordCommit counts a committed version produced by op and the number of
// cells it changed.
func RecordCommit(op string, changed int) {
	commitsTotal.WithLabelValues(op).Inc()
	recalculatedCells.Observe(float64(changed))
}

func RecordCycleRejection()            { cycleRejections.Inc() }
func SetSheets(n int)                  { sheetsLoaded.Set(float64(n)) }
func SetSessions(n int)                { sessions.Set(float64(n)) }
func RecordArchiveWrite(result string) { archiveWrites.WithLabelValues(result).Inc() }
func RecordArchiveDrop()               { archiveDropped.Inc() }
func SetArchiveQueueDepth(n int)       { archiveQueueDepth.Set(float64(n)) }
