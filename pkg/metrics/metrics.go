// Package metrics 定义了服务暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ClassifierDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soul_chat_classifier_decisions_total",
	Help: "Search intent decisions, labelled by the rule that decided",
}, []string{"rule", "search"})

var SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soul_chat_search_requests_total",
	Help: "Web search lookups by outcome",
}, []string{"outcome"})

var SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "soul_chat_search_latency_seconds",
	Help:    "Latency of web search lookups that reached the provider",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
})

var GuardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soul_chat_duplicate_rejections_total",
	Help: "Chat requests rejected as duplicates",
}, []string{"reason"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soul_chat_http_requests_total",
	Help: "HTTP requests by route, method and status",
}, []string{"route", "method", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "soul_chat_http_request_duration_seconds",
	Help:    "HTTP request latency by route",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "method"})

// 搜索结果标签
const (
	OutcomeSuccess       = "success"
	OutcomeNotConfigured = "not_configured"
	OutcomeAuthFailure   = "auth_failure"
	OutcomeAPIError      = "api_error"
	OutcomeTimeout       = "timeout"
	OutcomeTransport     = "transport_error"
	OutcomeNoResults     = "no_results"
)
