// Package metrics exposes Prometheus collectors for compression jobs, CRF
// searches and the quality-scoring queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vcompress"

var (
	// Job outcomes.
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "total",
		Help:      "Compression jobs finished, by final status",
	}, []string{"status"})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Wall time of compression jobs",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	})

	jobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "active",
		Help:      "Compression jobs currently running",
	})

	bytesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "jobs",
		Name:      "bytes_saved_total",
		Help:      "Input bytes minus output bytes over successful jobs",
	})

	// CRF search.
	searchProbes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "probes_total",
		Help:      "Scored sample probes across all CRF searches",
	})

	searchIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "search",
		Name:      "iterations",
		Help:      "Samples scored per CRF search",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})

	// Quality scoring.
	vmafScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "vmaf",
		Name:      "score",
		Help:      "VMAF scores attached to finished outputs",
		Buckets:   []float64{70, 80, 85, 90, 92, 94, 95, 96, 97, 98, 99, 100},
	})

	schedulerQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "Quality-scoring jobs waiting to run",
	})

	schedulerRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "running",
		Help:      "1 while a quality-scoring job is running",
	})
)

// JobStarted marks a compression job as active.
func JobStarted() { jobsActive.Inc() }

// JobFinished marks a compression job as no longer active.
func JobFinished() { jobsActive.Dec() }

// ObserveSearch records the number of samples one CRF search scored.
func ObserveSearch(samples int) {
	searchIterations.Observe(float64(samples))
}

// SetQueueDepth records the scheduler's pending count.
func SetQueueDepth(n int) {
	schedulerQueue.Set(float64(n))
}

// SetScoring records whether the scheduler is running a job.
func SetScoring(running bool) {
	if running {
		schedulerRunning.Set(1)
		return
	}
	schedulerRunning.Set(0)
}
