// Package observability registers and records Prometheus metrics for the
// memory service.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	searchDuration  prometheus.Histogram
	writeDuration   prometheus.Histogram
	organizeRuns    prometheus.Counter
	ingestedChunks  prometheus.Counter
	enrichmentTotal *prometheus.CounterVec
	notesTotal      prometheus.Gauge
	sweepOrphans    prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			searchDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "mnemo_memory_search_duration_seconds",
					Help:    "Semantic search duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			writeDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "mnemo_memory_write_duration_seconds",
					Help:    "Record-plus-index write duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			organizeRuns: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "mnemo_memory_cluster_runs_total",
					Help: "Completed clustering passes.",
				},
			),
			ingestedChunks: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "mnemo_memory_ingested_chunks_total",
					Help: "Chunks persisted by directory ingestion.",
				},
			),
			enrichmentTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "mnemo_memory_enrichment_total",
					Help: "URL enrichment attempts by outcome.",
				},
				[]string{"outcome"},
			),
			notesTotal: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "mnemo_memory_notes",
					Help: "Current note count across all users.",
				},
			),
			sweepOrphans: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "mnemo_memory_sweep_orphans",
					Help: "Inconsistencies found by the last consistency sweep.",
				},
			),
		}

		prometheus.MustRegister(
			m.searchDuration,
			m.writeDuration,
			m.organizeRuns,
			m.ingestedChunks,
			m.enrichmentTotal,
			m.notesTotal,
			m.sweepOrphans,
		)

		metricsInst = m
	})
	return metricsInst
}

// EnsureRegistered forces metric registration; call it from component
// constructors so metrics exist before the first scrape.
func EnsureRegistered() {
	getMetrics()
}

// RecordMemorySearch records one search duration.
func RecordMemorySearch(d time.Duration) {
	getMetrics().searchDuration.Observe(d.Seconds())
}

// RecordMemoryWrite records one mutating-operation duration.
func RecordMemoryWrite(d time.Duration) {
	getMetrics().writeDuration.Observe(d.Seconds())
}

// RecordOrganizeRun counts a completed clustering pass.
func RecordOrganizeRun() {
	getMetrics().organizeRuns.Inc()
}

// RecordIngestedChunks counts chunks committed by ingestion.
func RecordIngestedChunks(n int) {
	getMetrics().ingestedChunks.Add(float64(n))
}

// RecordEnrichment counts an enrichment attempt; outcome is "ok" or "failed".
func RecordEnrichment(outcome string) {
	getMetrics().enrichmentTotal.WithLabelValues(outcome).Inc()
}

// SetNoteCount updates the note count gauge.
func SetNoteCount(n int) {
	getMetrics().notesTotal.Set(float64(n))
}

// SetSweepOrphans updates the orphan gauge after a consistency sweep.
func SetSweepOrphans(n int) {
	getMetrics().sweepOrphans.Set(float64(n))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}
