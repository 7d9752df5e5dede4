// Package metrics exposes Prometheus instrumentation for the farm engine.
package metrics

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Emission metrics
	Settlements       *prometheus.CounterVec
	Minted            *prometheus.CounterVec
	CapLimitedMints   prometheus.Counter
	RewardTotalMinted prometheus.Gauge

	// Operation metrics
	Operations      *prometheus.CounterVec
	RewardsPaid     prometheus.Counter
	LastAppliedSeq  prometheus.Gauge
	LastAppliedTime prometheus.Gauge

	// Vault metrics
	VaultHarvests   prometheus.Counter
	VaultFeesBurned *prometheus.CounterVec

	// Storage metrics
	FlushDuration *prometheus.HistogramVec
	FlushErrors   *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "farmer"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "settlements_total",
			Help:      "Total number of pool settlements that minted rewards",
		}, []string{"pool"}),
		Minted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "minted_units_total",
			Help:      "Reward units minted by recipient",
		}, []string{"recipient"}),
		CapLimitedMints: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "cap_limited_mints_total",
			Help:      "Mints reduced by the supply ceiling",
		}),
		RewardTotalMinted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "emission",
			Name:      "reward_total_minted_units",
			Help:      "Lifetime reward units minted",
		}),

		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ops",
			Name:      "applied_total",
			Help:      "Operations applied by name and result",
		}, []string{"op", "result"}),
		RewardsPaid: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ops",
			Name:      "rewards_paid_units_total",
			Help:      "Reward units paid out to stakers",
		}),
		LastAppliedSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ops",
			Name:      "last_applied_seq",
			Help:      "Sequence number of the last applied journal record",
		}),
		LastAppliedTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ops",
			Name:      "last_applied_timestamp",
			Help:      "Journal timestamp of the last applied record",
		}),

		VaultHarvests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "harvests_total",
			Help:      "Total number of vault harvests",
		}),
		VaultFeesBurned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "fee_units_total",
			Help:      "Vault fee units by kind",
		}, []string{"kind"}),

		FlushDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "flush_duration_seconds",
			Help:      "Duration of storage flushes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		FlushErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "flush_errors_total",
			Help:      "Total number of failed storage flushes",
		}, []string{"sink"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSettlement records a settlement and the split it minted.
func (m *Metrics) RecordSettlement(pool string, poolShare, dev, treasury *big.Int, capLimited bool) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(pool).Inc()
	m.Minted.WithLabelValues("pool").Add(units(poolShare))
	m.Minted.WithLabelValues("dev").Add(units(dev))
	m.Minted.WithLabelValues("treasury").Add(units(treasury))
	if capLimited {
		m.CapLimitedMints.Inc()
	}
}

// SetTotalMinted updates the lifetime minted gauge.
func (m *Metrics) SetTotalMinted(total *big.Int) {
	if m == nil {
		return
	}
	m.RewardTotalMinted.Set(units(total))
}

// RecordOperation counts an applied operation.
func (m *Metrics) RecordOperation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

// RecordRewardPaid adds a payout.
func (m *Metrics) RecordRewardPaid(amount *big.Int) {
	if m == nil {
		return
	}
	m.RewardsPaid.Add(units(amount))
}

// RecordApplied updates the replay progress gauges.
func (m *Metrics) RecordApplied(seq, ts uint64) {
	if m == nil {
		return
	}
	m.LastAppliedSeq.Set(float64(seq))
	m.LastAppliedTime.Set(float64(ts))
}

// RecordHarvest records a vault harvest and its fees.
func (m *Metrics) RecordHarvest(performanceFee, callFee *big.Int) {
	if m == nil {
		return
	}
	m.VaultHarvests.Inc()
	m.VaultFeesBurned.WithLabelValues("performance").Add(units(performanceFee))
	m.VaultFeesBurned.WithLabelValues("call").Add(units(callFee))
}

// RecordWithdrawFee records a burned withdraw fee.
func (m *Metrics) RecordWithdrawFee(fee *big.Int) {
	if m == nil {
		return
	}
	m.VaultFeesBurned.WithLabelValues("withdraw").Add(units(fee))
}

// RecordFlush records a storage flush.
func (m *Metrics) RecordFlush(sink string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.FlushDuration.WithLabelValues(sink).Observe(seconds)
	if err != nil {
		m.FlushErrors.WithLabelValues(sink).Inc()
	}
}

func units(v *big.Int) float64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
