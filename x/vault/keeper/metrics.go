package keeper

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/paw-chain/vaultbook/x/vault/types"
)

// VaultMetrics holds all Prometheus metrics for the vault module
type VaultMetrics struct {
	// Operation metrics
	OperationsTotal  *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec

	// Order metrics
	OrdersCreated  *prometheus.CounterVec
	OrdersCanceled *prometheus.CounterVec
	OrdersFilled   *prometheus.CounterVec

	// Trade metrics
	TradeVolume     *prometheus.CounterVec
	TradeCost       *prometheus.CounterVec
	FeesCollected   *prometheus.CounterVec
	ArbitrageProfit *prometheus.CounterVec

	// Vault state
	VaultsTotal   prometheus.Gauge
	TradingPaused *prometheus.GaugeVec
	Withdrawals   *prometheus.CounterVec
}

var (
	vaultMetricsOnce sync.Once
	vaultMetrics     *VaultMetrics
)

// NewVaultMetrics creates and registers vault metrics (singleton pattern)
func NewVaultMetrics() *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		vaultMetrics = &VaultMetrics{
			OperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "operations_total",
					Help:      "Mutating vault operations by outcome",
				},
				[]string{"op", "status"},
			),
			OperationLatency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "operation_latency_seconds",
					Help:      "Vault operation latency in seconds",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			OrdersCreated: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "orders_created_total",
					Help:      "Resting orders created",
				},
				[]string{"vault_id", "token"},
			),
			OrdersCanceled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "orders_canceled_total",
					Help:      "Order cancellations, full or partial",
				},
				[]string{"vault_id", "token"},
			),
			OrdersFilled: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "orders_filled_total",
					Help:      "Resting orders touched by buys",
				},
				[]string{"vault_id", "token"},
			),
			TradeVolume: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "trade_volume_total",
					Help:      "Amount bought from the books in base units",
				},
				[]string{"vault_id", "denom"},
			),
			TradeCost: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "trade_cost_total",
					Help:      "Raw cost paid to resting orders in base units",
				},
				[]string{"vault_id", "denom"},
			),
			FeesCollected: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "fees_collected_total",
					Help:      "Trading fees sent to the fee receiver",
				},
				[]string{"vault_id", "denom"},
			),
			ArbitrageProfit: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "arbitrage_profit_total",
					Help:      "Profit extracted by arbitrage trades",
				},
				[]string{"vault_id", "denom"},
			),
			VaultsTotal: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "vaults_total",
					Help:      "Number of vaults created",
				},
			),
			TradingPaused: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "trading_paused",
					Help:      "1 when trading on the vault is paused",
				},
				[]string{"vault_id"},
			),
			Withdrawals: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "vaultbook",
					Subsystem: "vault",
					Name:      "withdrawals_total",
					Help:      "Trader balance withdrawals",
				},
				[]string{"vault_id", "denom"},
			),
		}
	})
	return vaultMetrics
}

// GetVaultMetrics returns the singleton vault metrics instance
func GetVaultMetrics() *VaultMetrics {
	if vaultMetrics == nil {
		return NewVaultMetrics()
	}
	return vaultMetrics
}

func (m *VaultMetrics) recordOperation(op string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = types.Classify(err).String()
	}
	m.OperationsTotal.WithLabelValues(op, status).Inc()
	m.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func vaultLabel(vaultID uint64) string {
	return fmt.Sprintf("%d", vaultID)
}

// toFloat converts an amount for a counter. Amounts can exceed int64 so the
// conversion goes through big.Float.
func toFloat(v math.Int) float64 {
	f, _ := new(big.Float).SetInt(v.BigInt()).Float64()
	return f
}
