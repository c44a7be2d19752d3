package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jenkins_mcp_tool_calls_total",
			Help: "Tool invocations by tool name and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	metricConfigErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jenkins_mcp_config_errors_total",
			Help: "Requests rejected for missing or malformed connection parameters.",
		},
		[]string{"param"},
	)

	metricUpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jenkins_mcp_upstream_requests_total",
			Help: "Outbound Jenkins API requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	metricUpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jenkins_mcp_upstream_request_duration_seconds",
			Help:    "Latency of outbound Jenkins API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
