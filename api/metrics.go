package api

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds the Prometheus metrics of the HTTP gateway
type GatewayMetrics struct {
	RequestsTotal  *prometheus.CounterVec
	RequestLatency *prometheus.HistogramVec

	WSClients  prometheus.Gauge
	WSMessages *prometheus.CounterVec

	FaucetRequests *prometheus.CounterVec
}

var (
	gatewayMetricsOnce sync.Once
	gatewayMetrics     *GatewayMetrics
)

// NewGatewayMetrics creates and registers gateway metrics (singleton pattern)
func NewGatewayMetrics() *GatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayMetrics = &GatewayMetrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "gateway",
					Name:      "requests_total",
					Help:      "HTTP requests by route and status",
				},
				[]string{"method", "route", "status"},
			),
			RequestLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "vaultbook",
					Subsystem: "gateway",
					Name:      "request_latency_seconds",
					Help:      "HTTP request latency in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
			WSClients: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "vaultbook",
					Subsystem: "gateway",
					Name:      "websocket_clients",
					Help:      "Connected websocket clients",
				},
			),
			WSMessages: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "gateway",
					Name:      "websocket_messages_total",
					Help:      "Websocket messages queued by channel",
				},
				[]string{"channel"},
			),
			FaucetRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "gateway",
					Name:      "faucet_requests_total",
					Help:      "Faucet requests by outcome",
				},
				[]string{"status"},
			),
		}
	})
	return gatewayMetrics
}
