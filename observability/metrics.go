package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SaleMetrics records contribution and settlement activity.
type SaleMetrics struct {
	Deposits    *prometheus.CounterVec
	Withdrawals *prometheus.CounterVec
	Errors      *prometheus.CounterVec
}

var (
	saleMetricsOnce sync.Once
	saleRegistry    *SaleMetrics
)

// Metrics returns the lazily-initialised sale metrics registry.
func Metrics() *SaleMetrics {
	saleMetricsOnce.Do(func() {
		saleRegistry = &SaleMetrics{
			Deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sale",
				Name:      "deposits_total",
				Help:      "Total successful contributions segmented by asset.",
			}, []string{"asset"}),
			Withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sale",
				Name:      "referral_withdrawals_total",
				Help:      "Total referral settlements segmented by asset.",
			}, []string{"asset"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sale",
				Name:      "operation_errors_total",
				Help:      "Total failed operations segmented by operation.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(saleRegistry.Deposits, saleRegistry.Withdrawals, saleRegistry.Errors)
	})
	return saleRegistry
}

// RecordDeposit increments the deposit counter for an asset.
func (m *SaleMetrics) RecordDeposit(asset string) {
	if m == nil {
		return
	}
	m.Deposits.WithLabelValues(asset).Inc()
}

// RecordWithdrawal increments the settlement counter for an asset.
func (m *SaleMetrics) RecordWithdrawal(asset string) {
	if m == nil {
		return
	}
	m.Withdrawals.WithLabelValues(asset).Inc()
}

// RecordError increments the error counter for an operation.
func (m *SaleMetrics) RecordError(operation string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(operation).Inc()
}
