// Package metrics registers the Prometheus collectors exposed on /metrics
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fracheck_requests_total",
		Help: "Total API requests by route and status code",
	}, []string{"route", "code"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fracheck_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fracheck_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter",
	})
	RateLimitedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fracheck_rate_limited_clients",
		Help: "Clients tracked by the per-client rate limiter",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fracheck_cache_hits_total",
		Help: "Validation results served from cache",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fracheck_cache_misses_total",
		Help: "Validation requests not found in cache",
	})
	FeaturesValidatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fracheck_features_validated_total",
		Help: "Features processed by the validation pipeline",
	})
	FlagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fracheck_flags_total",
		Help: "Flags raised on processed features",
	}, []string{"flag"})
	ConfidenceScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fracheck_confidence_score",
		Help:    "Confidence distribution of processed features",
		Buckets: []float64{0.2, 0.3, 0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
	}, []string{"claim_type"})
	DuplicateCandidatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fracheck_duplicate_candidates_total",
		Help: "Claim pairs reported by duplicate detection",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(RateLimitedClients)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(FeaturesValidatedTotal)
	prometheus.MustRegister(FlagsTotal)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(DuplicateCandidatesTotal)
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler { return promhttp.Handler() }
