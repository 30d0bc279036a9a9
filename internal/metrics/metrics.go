// Package metrics holds the gateway's Prometheus collectors. Everything is
// registered on the default registry and served by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests counts dispatch outcomes. Status is one of ok, invalid_rate,
	// unknown_voice, too_long, backend_error, unavailable.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttsgate_requests_total",
			Help: "Dispatch outcomes by mode and status.",
		},
		[]string{"mode", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ttsgate_request_duration_seconds",
			Help:    "End-to-end dispatch latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// CacheEvents counts cache subsystem outcomes: hit, miss, store,
	// store_error, decrypt_error, lookup_error.
	CacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttsgate_cache_events_total",
			Help: "Cache lookups and stores by outcome.",
		},
		[]string{"event"},
	)

	Synthesis = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ttsgate_synthesis_total",
			Help: "Backend synthesis calls by mode and status.",
		},
		[]string{"mode", "status"},
	)

	CredentialRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ttsgate_credential_refreshes_total",
			Help: "Signed-token refreshes performed.",
		},
	)
)
