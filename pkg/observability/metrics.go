// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the engine hub.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// CatalogBuckets covers catalog endpoint latencies from 10ms to 30s.
var CatalogBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route pattern.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route pattern.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enginehub_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "enginehub_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// CatalogFetchTotal counts model catalog fetches by engine and outcome
	// (ok, error, skipped).
	CatalogFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_catalog_fetch_total",
			Help: "Model catalog fetches",
		},
		[]string{"engine", "status"},
	)

	// CatalogFetchLatency records catalog endpoint latency in seconds.
	CatalogFetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enginehub_catalog_fetch_latency_seconds",
			Help:    "Model catalog fetch latency",
			Buckets: CatalogBuckets,
		},
		[]string{"engine"},
	)

	// CatalogSavesTotal counts catalog persistence attempts by engine and
	// outcome (ok, error, no_catalog).
	CatalogSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_catalog_saves_total",
			Help: "Model catalog saves",
		},
		[]string{"engine", "status"},
	)

	// CatalogModels reports the size of the cached catalog per engine and kind.
	CatalogModels = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "enginehub_catalog_models",
			Help: "Models in the cached catalog",
		},
		[]string{"engine", "kind"},
	)

	// IgnitionsTotal counts engine ignitions by the resolver that produced
	// the handle (favorites, custom, fallback).
	IgnitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_ignitions_total",
			Help: "Engine ignitions",
		},
		[]string{"resolver"},
	)

	// IgnitionFailuresTotal counts resolver failures that were masked by
	// falling through to the next resolver.
	IgnitionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_ignition_failures_total",
			Help: "Engine resolver failures",
		},
		[]string{"resolver"},
	)

	// EngineRequestsTotal counts completion requests sent to engines.
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_engine_requests_total",
			Help: "Engine completion requests",
		},
		[]string{"engine", "mode", "status"},
	)

	// EngineLatency records completion latency in seconds.
	EngineLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enginehub_engine_latency_seconds",
			Help:    "Engine completion latency",
			Buckets: LLMBuckets,
		},
		[]string{"engine", "mode"},
	)

	// EngineTokensTotal counts tokens processed by direction (input/output).
	EngineTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_engine_tokens_total",
			Help: "Token count",
		},
		[]string{"engine", "direction"},
	)

	// AuthRejectedTotal counts requests rejected by the auth chain.
	AuthRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enginehub_auth_rejected_total",
			Help: "Rejected requests",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		CatalogFetchTotal,
		CatalogFetchLatency,
		CatalogSavesTotal,
		CatalogModels,
		IgnitionsTotal,
		IgnitionFailuresTotal,
		EngineRequestsTotal,
		EngineLatency,
		EngineTokensTotal,
		AuthRejectedTotal,
	)
}
