// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	ListingsFetched  *prometheus.CounterVec
	ListingsSkipped  *prometheus.CounterVec
	ListingsMatched  *prometheus.CounterVec
	ListingsRejected *prometheus.CounterVec
	BundlesDetected  *prometheus.CounterVec
	SourceErrors     *prometheus.CounterVec
	FetchLatency     *prometheus.HistogramVec

	// Matching metrics
	MatchOutcomes  *prometheus.CounterVec
	AmbiguousRate  prometheus.Counter
	SoldUpdates    prometheus.Counter

	// Candidate metrics
	CandidatesObserved prometheus.Counter
	CandidatesCreated  prometheus.Counter

	// Maintenance metrics
	DuplicatesRemoved prometheus.Counter
	ListingsExpired   prometheus.Counter
	ListingsArchived  prometheus.Counter

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hifi_market_lab"
	}

	return &Metrics{
		ListingsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_fetched_total",
			Help:      "Total number of raw listings fetched by source",
		}, []string{"source"}),
		ListingsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_skipped_total",
			Help:      "Total number of unchanged listings skipped by source",
		}, []string{"source"}),
		ListingsMatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_matched_total",
			Help:      "Total number of listing components matched by source",
		}, []string{"source"}),
		ListingsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "listings_rejected_total",
			Help:      "Total number of listings matching nothing by source",
		}, []string{"source"}),
		BundlesDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bundles_detected_total",
			Help:      "Total number of multi-component listings by source",
		}, []string{"source"}),
		SourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "source_errors_total",
			Help:      "Total number of per-source processing errors",
		}, []string{"source"}),
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_latency_seconds",
			Help:      "Source fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),

		MatchOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "outcomes_total",
			Help:      "Total number of match outcomes by kind",
		}, []string{"outcome"}),
		AmbiguousRate: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "ambiguous_total",
			Help:      "Total number of matches flagged ambiguous",
		}),
		SoldUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "sold_updates_total",
			Help:      "Total number of listings flipped to sold",
		}),

		CandidatesObserved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candidates",
			Name:      "observed_total",
			Help:      "Total number of candidate sightings observed",
		}),
		CandidatesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "candidates",
			Name:      "created_total",
			Help:      "Total number of new candidate rows created",
		}),

		DuplicatesRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "duplicates_removed_total",
			Help:      "Total number of cross-post duplicates removed",
		}),
		ListingsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "listings_expired_total",
			Help:      "Total number of stale listings expired",
		}),
		ListingsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "listings_archived_total",
			Help:      "Total number of listings moved to cold storage",
		}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by final state",
		}, []string{"state"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSourceStats folds one source's run counters into the metrics.
func RecordSourceStats(source string, fetched, skipped, matched, rejected, bundles, errors int) {
	m := DefaultMetrics
	m.ListingsFetched.WithLabelValues(source).Add(float64(fetched))
	m.ListingsSkipped.WithLabelValues(source).Add(float64(skipped))
	m.ListingsMatched.WithLabelValues(source).Add(float64(matched))
	m.ListingsRejected.WithLabelValues(source).Add(float64(rejected))
	m.BundlesDetected.WithLabelValues(source).Add(float64(bundles))
	m.SourceErrors.WithLabelValues(source).Add(float64(errors))
}

// RecordMatchOutcome increments one match outcome counter.
func RecordMatchOutcome(outcome string, ambiguous bool) {
	DefaultMetrics.MatchOutcomes.WithLabelValues(outcome).Inc()
	if ambiguous {
		DefaultMetrics.AmbiguousRate.Inc()
	}
}

// RecordSoldUpdate increments the sold-update counter.
func RecordSoldUpdate() {
	DefaultMetrics.SoldUpdates.Inc()
}

// RecordCandidates records sightings observed and rows created.
func RecordCandidates(observed, created int) {
	DefaultMetrics.CandidatesObserved.Add(float64(observed))
	DefaultMetrics.CandidatesCreated.Add(float64(created))
}

// RecordMaintenance records the dedup/expiry/archival sweep counters.
func RecordMaintenance(duplicates, expired, archived int) {
	DefaultMetrics.DuplicatesRemoved.Add(float64(duplicates))
	DefaultMetrics.ListingsExpired.Add(float64(expired))
	DefaultMetrics.ListingsArchived.Add(float64(archived))
}

// RecordRun records a finished pipeline run.
func RecordRun(state string, durationSeconds float64, finishedAt int64, succeeded bool) {
	DefaultMetrics.RunsTotal.WithLabelValues(state).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
	if succeeded {
		DefaultMetrics.LastSuccessfulRun.Set(float64(finishedAt))
	}
}
