package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP 指标
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// 业务指标
var (
	// WebhookEvents 渠道回调处理结果 (applied / unmatched / error)
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment provider webhook events by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// OrderTransitions 订单状态流转计数
	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Applied order status transitions",
		},
		[]string{"from", "to"},
	)

	// IdempotencyReplays 幂等键命中重放的次数
	IdempotencyReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_replays_total",
			Help: "Requests served from the idempotency store",
		},
		[]string{"route"},
	)
)
