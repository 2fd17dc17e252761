package jsonquery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueriesTotal counts Cache.Query calls by outcome
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonquery_cache_queries_total",
			Help: "Total number of cache queries",
		},
		[]string{"status"},
	)
	// RecordsScanned counts records loaded and tested by queries
	RecordsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jsonquery_cache_records_scanned_total",
			Help: "Records tested against a compiled filter",
		},
	)
	// RecordsMatched counts records that passed the filter
	RecordsMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jsonquery_cache_records_matched_total",
			Help: "Records that matched a compiled filter",
		},
	)
	// PredicateCache counts compiled predicate lookups by result
	PredicateCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonquery_predicate_cache_total",
			Help: "Compiled predicate cache lookups",
		},
		[]string{"result"},
	)
	// QueryDuration is the latency of Cache.Query
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jsonquery_cache_query_duration_seconds",
			Help:    "Cache query latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
