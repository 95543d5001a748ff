package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orchai"

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

type hostMetrics struct {
	txs      *prometheus.CounterVec
	duration *prometheus.HistogramVec
	messages *prometheus.CounterVec
	height   prometheus.Gauge
}

type marketMetrics struct {
	exchangeRate     prometheus.Gauge
	borrowRate       prometheus.Gauge
	totalLiabilities prometheus.Gauge
	totalReserves    prometheus.Gauge
	emissionRate     prometheus.Gauge
	liquidations     *prometheus.CounterVec
	epochs           *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	hostMetricsOnce sync.Once
	hostRegistry    *hostMetrics

	marketMetricsOnce sync.Once
	marketRegistry    *marketMetrics
)

// ModuleMetrics returns the lazily-initialised registry recording gateway
// route activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total gateway requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "errors_total",
				Help:      "Total gateway errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for gateway handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "throttles_total",
				Help:      "Count of gateway requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a gateway request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// HostMetrics returns the registry tracking transaction execution.
func HostMetrics() *hostMetrics {
	hostMetricsOnce.Do(func() {
		hostRegistry = &hostMetrics{
			txs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "host",
				Name:      "transactions_total",
				Help:      "Transactions executed by the host segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "host",
				Name:      "transaction_duration_seconds",
				Help:      "Wall time spent executing a transaction including sub-messages.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			}, []string{"kind"}),
			messages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "host",
				Name:      "messages_total",
				Help:      "Contract messages dispatched segmented by code and action.",
			}, []string{"code", "action"}),
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "host",
				Name:      "block_height",
				Help:      "Current block height of the host clock.",
			}),
		}
		prometheus.MustRegister(hostRegistry.txs, hostRegistry.duration, hostRegistry.messages, hostRegistry.height)
	})
	return hostRegistry
}

// ObserveTx records a finished top-level transaction.
func (m *hostMetrics) ObserveTx(kind string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "committed"
	if err != nil {
		outcome = "reverted"
	}
	m.txs.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordMessage counts one contract handler invocation.
func (m *hostMetrics) RecordMessage(code, action string) {
	if m == nil {
		return
	}
	if action == "" {
		action = "unknown"
	}
	m.messages.WithLabelValues(code, action).Inc()
}

// SetHeight publishes the current block height.
func (m *hostMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// MarketMetrics returns the registry exposing money-market gauges.
func MarketMetrics() *marketMetrics {
	marketMetricsOnce.Do(func() {
		gauge := func(name, help string) prometheus.Gauge {
			return prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "market",
				Name:      name,
				Help:      help,
			})
		}
		marketRegistry = &marketMetrics{
			exchangeRate:     gauge("exchange_rate", "Receipt token to stable exchange rate."),
			borrowRate:       gauge("borrow_rate_per_block", "Current borrow rate per block."),
			totalLiabilities: gauge("total_liabilities", "Outstanding borrowed stable amount."),
			totalReserves:    gauge("total_reserves", "Protocol reserves held by the market."),
			emissionRate:     gauge("emission_rate", "Reward tokens emitted per block."),
			liquidations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "market",
				Name:      "liquidations_total",
				Help:      "Collateral liquidations executed by the overseer.",
			}, []string{"collateral"}),
			epochs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "market",
				Name:      "epoch_operations_total",
				Help:      "Epoch operations attempted by the keeper segmented by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			marketRegistry.exchangeRate,
			marketRegistry.borrowRate,
			marketRegistry.totalLiabilities,
			marketRegistry.totalReserves,
			marketRegistry.emissionRate,
			marketRegistry.liquidations,
			marketRegistry.epochs,
		)
	})
	return marketRegistry
}

// MarketSnapshot is the set of gauges refreshed after each block.
type MarketSnapshot struct {
	ExchangeRate     float64
	BorrowRate       float64
	TotalLiabilities float64
	TotalReserves    float64
	EmissionRate     float64
}

// RecordState publishes a market snapshot.
func (m *marketMetrics) RecordState(s MarketSnapshot) {
	if m == nil {
		return
	}
	m.exchangeRate.Set(s.ExchangeRate)
	m.borrowRate.Set(s.BorrowRate)
	m.totalLiabilities.Set(s.TotalLiabilities)
	m.totalReserves.Set(s.TotalReserves)
	m.emissionRate.Set(s.EmissionRate)
}

// RecordLiquidation counts a liquidation of the given collateral token.
func (m *marketMetrics) RecordLiquidation(collateral string) {
	if m == nil {
		return
	}
	if collateral == "" {
		collateral = "unknown"
	}
	m.liquidations.WithLabelValues(collateral).Inc()
}

// RecordEpoch counts an epoch keeper attempt.
func (m *marketMetrics) RecordEpoch(outcome string) {
	if m == nil {
		return
	}
	m.epochs.WithLabelValues(outcome).Inc()
}
