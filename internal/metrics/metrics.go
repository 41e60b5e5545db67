package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bw_check_duration_seconds",
			Help:    "Time spent computing a verdict",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bw_checks_total",
			Help: "Checks by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bw_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bw_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bw_cache_errors_total",
			Help: "Cache backend errors",
		},
		[]string{"cache_type", "op"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bw_cache_evictions_total",
			Help: "Cache evictions",
		},
		[]string{"reason"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bw_provider_duration_seconds",
			Help:    "Outbound provider call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bw_provider_calls_total",
			Help: "Provider calls by outcome (ok, unavailable, timeout, breaker_open)",
		},
		[]string{"provider", "outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bw_provider_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 open, 2 half-open)",
		},
		[]string{"provider"},
	)

	AlertDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bw_alert_deliveries_total",
			Help: "Alert channel deliveries by outcome",
		},
		[]string{"channel", "outcome"},
	)

	AlertsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bw_alerts_dropped_total",
			Help: "Alerts dropped because the dispatch queue was full",
		},
	)

	BlocklistSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bw_blocklist_entries",
			Help: "Indicators loaded into the IP blocklist filter",
		},
	)
)
