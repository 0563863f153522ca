package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NodeMetrics aggregates the counters and histograms for the pool and escrow
// engines plus the RPC surface.
type NodeMetrics struct {
	poolOps     *prometheus.CounterVec
	poolErrors  *prometheus.CounterVec
	escrowOps   *prometheus.CounterVec
	escrowOpen  prometheus.Gauge
	rpcRequests *prometheus.CounterVec
	rpcLatency  *prometheus.HistogramVec
}

var (
	nodeOnce     sync.Once
	nodeRegistry *NodeMetrics
)

// Node returns the process-wide metrics registry, creating and registering it
// on first use.
func Node() *NodeMetrics {
	nodeOnce.Do(func() {
		nodeRegistry = &NodeMetrics{
			poolOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_operations_total",
				Help: "Count of executed pool operations by name.",
			}, []string{"op"}),
			poolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "pool_operation_errors_total",
				Help: "Count of failed pool operations by name.",
			}, []string{"op"}),
			escrowOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_operations_total",
				Help: "Count of executed escrow operations by name.",
			}, []string{"op"}),
			escrowOpen: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "escrow_open_requests",
				Help: "Number of escrow requests currently held in custody.",
			}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rpc_requests_total",
				Help: "Count of JSON-RPC requests by method and outcome.",
			}, []string{"method", "outcome"}),
			rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "rpc_request_duration_seconds",
				Help:    "JSON-RPC request latency by method.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			nodeRegistry.poolOps,
			nodeRegistry.poolErrors,
			nodeRegistry.escrowOps,
			nodeRegistry.escrowOpen,
			nodeRegistry.rpcRequests,
			nodeRegistry.rpcLatency,
		)
	})
	return nodeRegistry
}

// ObservePoolOp records a pool engine call and its outcome.
func (m *NodeMetrics) ObservePoolOp(op string, err error) {
	if m == nil {
		return
	}
	m.poolOps.WithLabelValues(op).Inc()
	if err != nil {
		m.poolErrors.WithLabelValues(op).Inc()
	}
}

// ObserveEscrowOp records an escrow engine call.
func (m *NodeMetrics) ObserveEscrowOp(op string) {
	if m == nil {
		return
	}
	m.escrowOps.WithLabelValues(op).Inc()
}

// EscrowOpened and EscrowClosed track the custody gauge.
func (m *NodeMetrics) EscrowOpened() {
	if m == nil {
		return
	}
	m.escrowOpen.Inc()
}

func (m *NodeMetrics) EscrowClosed() {
	if m == nil {
		return
	}
	m.escrowOpen.Dec()
}

// ObserveRPC records one JSON-RPC request with its latency.
func (m *NodeMetrics) ObserveRPC(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}
