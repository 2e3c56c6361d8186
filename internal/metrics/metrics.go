package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// FundMetrics bundles the collectors exported by the index fund service.
// A nil *FundMetrics is valid and records nothing.
type FundMetrics struct {
	registry *prometheus.Registry

	deposits       *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	depositLatency prometheus.Histogram
	sharesMinted   prometheus.Counter
	shareSupply    prometheus.Gauge
	fundValue      prometheus.Gauge
	assetsHeld     prometheus.Gauge
	rpcRequests    *prometheus.CounterVec
	rpcDurations   *prometheus.HistogramVec
}

// New creates the collectors on a dedicated registry.
func New(namespace string) *FundMetrics {
	if namespace = strings.TrimSpace(namespace); namespace == "" {
		namespace = "indexfund"
	}

	m := &FundMetrics{
		registry: prometheus.NewRegistry(),
		deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposits_total",
			Help:      "Accepted deposits segmented by asset.",
		}, []string{"asset"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposit_rejections_total",
			Help:      "Rejected deposits segmented by reason.",
		}, []string{"reason"}),
		depositLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deposit_duration_seconds",
			Help:      "Time spent pricing and recording a deposit.",
			Buckets:   prometheus.DefBuckets,
		}),
		sharesMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shares_minted_total",
			Help:      "Shares minted by accepted deposits, in whole share units.",
		}),
		shareSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "share_supply",
			Help:      "Share token total supply in whole share units.",
		}),
		fundValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fund_value",
			Help:      "Fund valuation observed by the last deposit, in whole valuation units.",
		}),
		assetsHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assets_held",
			Help:      "Number of distinct assets in the registry.",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "gRPC requests segmented by method and outcome.",
		}, []string{"method", "code"}),
		rpcDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "Duration of gRPC requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		m.deposits,
		m.rejections,
		m.depositLatency,
		m.sharesMinted,
		m.shareSupply,
		m.fundValue,
		m.assetsHeld,
		m.rpcRequests,
		m.rpcDurations,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *FundMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *FundMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveDeposit records an accepted deposit.
// shares, supply and fundValue are base units with the given decimals.
func (m *FundMetrics) ObserveDeposit(asset string, shares, supply, fundValue *uint256.Int, decimals int32, assets int, d time.Duration) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(label(asset)).Inc()
	m.sharesMinted.Add(toFloat(shares, decimals))
	m.shareSupply.Set(toFloat(supply, decimals))
	m.fundValue.Set(toFloat(fundValue, decimals))
	m.assetsHeld.Set(float64(assets))
	m.depositLatency.Observe(d.Seconds())
}

// ObserveRejection records a rejected deposit.
func (m *FundMetrics) ObserveRejection(reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(label(reason)).Inc()
	m.depositLatency.Observe(d.Seconds())
}

// SetShareSupply overwrites the supply gauge, used after restoring state.
func (m *FundMetrics) SetShareSupply(supply *uint256.Int, decimals int32) {
	if m == nil {
		return
	}
	m.shareSupply.Set(toFloat(supply, decimals))
}

// SetAssetsHeld overwrites the asset count gauge.
func (m *FundMetrics) SetAssetsHeld(n int) {
	if m == nil {
		return
	}
	m.assetsHeld.Set(float64(n))
}

// ObserveRPC records one gRPC call.
func (m *FundMetrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(label(method), label(code)).Inc()
	m.rpcDurations.WithLabelValues(label(method)).Observe(d.Seconds())
}

func label(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return "unknown"
	}
	return v
}

func toFloat(v *uint256.Int, decimals int32) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v.ToBig(), -decimals).InexactFloat64()
}
