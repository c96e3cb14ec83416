// Colligo - Social Feed Assembly and Engagement Caching
// Copyright 2026 Colligo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/colligo-dev/colligo

// Package metrics defines the Prometheus instrumentation for Colligo.
//
// All collectors are registered with the default registry via promauto and
// exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Feed assembly metrics
	FeedAssemblyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_assembly_duration_seconds",
			Help:    "Time spent assembling a full feed on cache miss",
			Buckets: prometheus.DefBuckets,
		},
	)

	FeedEntriesAssembled = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_entries_assembled",
			Help:    "Number of entries produced per feed assembly",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 250},
		},
	)

	FeedCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_hits_total",
			Help: "Total number of feed cache hits",
		},
	)

	FeedCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_misses_total",
			Help: "Total number of feed cache misses",
		},
	)

	FeedRefreshesQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_refreshes_queued_total",
			Help: "Total number of background feed refreshes queued",
		},
	)

	FeedRefreshesCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_refreshes_coalesced_total",
			Help: "Refresh requests dropped because one was already in flight for the key",
		},
	)

	// Like path metrics
	LikeToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "like_toggles_total",
			Help: "Total number of like toggles by outcome",
		},
		[]string{"result"}, // "liked", "unliked"
	)

	// Reconciler metrics
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconcile_runs_total",
			Help: "Total number of reconciliation passes by outcome",
		},
		[]string{"outcome"}, // "ok", "partial", "error", "skipped"
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcilePostsMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_posts_merged_total",
			Help: "Total number of posts whose like sets were merged durably",
		},
	)

	ReconcilePostsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconcile_posts_failed_total",
			Help: "Total number of posts whose like merge failed and was retained for retry",
		},
	)

	ReconcileLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reconcile_last_success_timestamp",
			Help: "Unix timestamp of the last fully successful reconciliation pass",
		},
	)

	// Candidate resolver metrics
	ResolverRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_requests_total",
			Help: "Total number of candidate resolver calls by outcome",
		},
		[]string{"pool", "outcome"}, // pool: "following", "random"; outcome: "ok", "error", "open"
	)

	ResolverRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resolver_request_duration_seconds",
			Help:    "Candidate resolver call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"pool"},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Ephemeral store metrics
	EphemeralOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ephemeral_operations_total",
			Help: "Total number of ephemeral store operations by outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "error"
	)

	// Event bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"topic"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordLikeToggle records the outcome of a like toggle.
func RecordLikeToggle(liked bool) {
	if liked {
		LikeToggles.WithLabelValues("liked").Inc()
	} else {
		LikeToggles.WithLabelValues("unliked").Inc()
	}
}

// RecordFeedAssembly records one full feed assembly.
func RecordFeedAssembly(duration time.Duration, entries int) {
	FeedAssemblyDuration.Observe(duration.Seconds())
	FeedEntriesAssembled.Observe(float64(entries))
}

// RecordReconcilePass records the outcome of one reconciliation pass.
func RecordReconcilePass(outcome string, duration time.Duration, merged, failed int) {
	ReconcileRuns.WithLabelValues(outcome).Inc()
	ReconcileDuration.Observe(duration.Seconds())
	ReconcilePostsMerged.Add(float64(merged))
	ReconcilePostsFailed.Add(float64(failed))
	if outcome == "ok" {
		ReconcileLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordResolverRequest records a candidate resolver call.
func RecordResolverRequest(pool, outcome string, duration time.Duration) {
	ResolverRequests.WithLabelValues(pool, outcome).Inc()
	ResolverRequestDuration.WithLabelValues(pool).Observe(duration.Seconds())
}

// RecordEphemeralOperation records an ephemeral store operation.
func RecordEphemeralOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	EphemeralOperations.WithLabelValues(operation, outcome).Inc()
}
