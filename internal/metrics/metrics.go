// Package metrics exposes the lock workflow's Prometheus metrics.
package metrics

import (
	"math/big"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "timelock"

// Refresh result labels.
const (
	refreshOK    = "ok"
	refreshError = "error"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	refreshes  *prometheus.CounterVec
	balances   *prometheus.GaugeVec
}

// New creates the collectors and registers them, along with the Go runtime
// collector, on a fresh registry.
func New() *Metrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "operations_total",
		Help:      "Lock transactions submitted, by operation and result",
	}, []string{"operation", "result"})

	refreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "refresh_total",
		Help:      "Balance refreshes, by result",
	}, []string{"result"})

	balances := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "balance_wei",
		Help:      "Last observed balance in wei",
	}, []string{"holder"})

	r := prometheus.NewRegistry()
	r.MustRegister(operations, refreshes, balances, collectors.NewGoCollector())

	return &Metrics{
		registry:   r,
		operations: operations,
		refreshes:  refreshes,
		balances:   balances,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOperation counts a submitted operation.
func (m *Metrics) RecordOperation(operation, result string) {
	m.operations.WithLabelValues(operation, result).Inc()
}

// RecordRefresh counts a balance refresh.
func (m *Metrics) RecordRefresh(err error) {
	result := refreshOK
	if err != nil {
		result = refreshError
	}
	m.refreshes.WithLabelValues(result).Inc()
}

// SetBalance records the latest balance of a holder. Gauges are float64,
// so very large balances lose precision.
func (m *Metrics) SetBalance(holder string, wei *big.Int) {
	if wei == nil {
		return
	}
	f, _ := new(big.Float).SetInt(wei).Float64()
	m.balances.WithLabelValues(holder).Set(f)
}
