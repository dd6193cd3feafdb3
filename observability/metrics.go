package observability

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type protocolMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	throttles  *prometheus.CounterVec
	rewardRate prometheus.Gauge
	epochEnd   prometheus.Gauge
}

var (
	protocolOnce     sync.Once
	protocolRegistry *protocolMetrics
)

// Protocol returns the lazily-initialised metrics registry recording engine
// and distributor activity served through the gateway.
func Protocol() *protocolMetrics {
	protocolOnce.Do(func() {
		protocolRegistry = &protocolMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "synthmint",
				Subsystem: "protocol",
				Name:      "operations_total",
				Help:      "Total protocol operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "synthmint",
				Subsystem: "protocol",
				Name:      "errors_total",
				Help:      "Total failed protocol operations segmented by operation and status code.",
			}, []string{"operation", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "synthmint",
				Subsystem: "protocol",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for protocol operation handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "synthmint",
				Subsystem: "gateway",
				Name:      "throttles_total",
				Help:      "Count of gateway requests rejected by rate limiting.",
			}, []string{"reason"}),
			rewardRate: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "synthmint",
				Subsystem: "reward",
				Name:      "unlock_rate_per_second",
				Help:      "Current reward unlock rate in reward token units per second.",
			}),
			epochEnd: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "synthmint",
				Subsystem: "reward",
				Name:      "epoch_end_unix_seconds",
				Help:      "Unix timestamp the current reward epoch accrues until.",
			}),
		}
		prometheus.MustRegister(
			protocolRegistry.operations,
			protocolRegistry.errors,
			protocolRegistry.latency,
			protocolRegistry.throttles,
			protocolRegistry.rewardRate,
			protocolRegistry.epochEnd,
		)
	})
	return protocolRegistry
}

// Observe records the outcome of one protocol operation. The status code is
// the HTTP status written to the response.
func (m *protocolMetrics) Observe(operation string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(operation, fmt.Sprintf("%d", status)).Inc()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordThrottle counts a rate-limited gateway request.
func (m *protocolMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// SetRewardState publishes the distributor's current window to dashboards.
func (m *protocolMetrics) SetRewardState(rate *big.Int, epochEnd int64) {
	if m == nil {
		return
	}
	if rate != nil {
		value, _ := new(big.Float).SetInt(rate).Float64()
		m.rewardRate.Set(value)
	}
	m.epochEnd.Set(float64(epochEnd))
}
