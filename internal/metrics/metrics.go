package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyforge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copyforge_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyforge_generations_total",
			Help: "Content generations by outcome",
		},
		[]string{"status", "tier"},
	)

	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyforge_quota_rejections_total",
			Help: "Admissions rejected by the metering gate, by reason",
		},
		[]string{"reason", "tier"},
	)

	TokensConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copyforge_tokens_consumed_total",
			Help: "Tokens settled against usage ledgers",
		},
		[]string{"tier"},
	)
)
