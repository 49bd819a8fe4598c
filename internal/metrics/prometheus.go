package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/kgroup/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are registered lazily on first use so that constructing a
// collector never panics on duplicate registration until it is used.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	stateTransitions  *prometheus.CounterVec
	rebalances        *prometheus.CounterVec
	partitions        prometheus.Gauge
	acquired          prometheus.Gauge
	callbackErrors    *prometheus.CounterVec
	discoveryFailures *prometheus.CounterVec

	heartbeats     *prometheus.CounterVec
	members        prometheus.Gauge
	lockOperations *prometheus.CounterVec
	kvLatency      *prometheus.HistogramVec
}

var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (defaults to "kgroup" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "kgroup"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "state_transitions_total",
			Help:      "Observed set partitioner state transitions.",
		}, []string{"from", "to"})

		p.rebalances = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "rebalances_total",
			Help:      "Set partitioner replacements by reason.",
		}, []string{"reason"})

		p.partitions = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "target_partitions",
			Help:      "Size of the current target partition set.",
		})

		p.acquired = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "acquired_partitions",
			Help:      "Number of sub-partitions currently acquired by this member.",
		})

		p.callbackErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "callback_errors_total",
			Help:      "Failed acquire/release callbacks.",
		}, []string{"op"})

		p.discoveryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "discovery_failures_total",
			Help:      "Failed broker metadata queries, by whether the failure was deferred.",
		}, []string{"deferred"})

		p.heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "heartbeats_total",
			Help:      "Member heartbeat publications by result.",
		}, []string{"result"})

		p.members = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "members",
			Help:      "Number of live members observed in the group.",
		})

		p.lockOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "lock_operations_total",
			Help:      "Partition lock operations by operation and result.",
		}, []string{"operation", "result"})

		p.kvLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "kv_operation_seconds",
			Help:      "Latency of NATS KV operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		}, []string{"operation"})

		p.reg.MustRegister(
			p.stateTransitions,
			p.rebalances,
			p.partitions,
			p.acquired,
			p.callbackErrors,
			p.discoveryFailures,
			p.heartbeats,
			p.members,
			p.lockOperations,
			p.kvLatency,
		)
	})
}

// RecordStateTransition counts an observed state transition.
func (p *PrometheusCollector) RecordStateTransition(from, to types.PartitionState) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

// RecordRebalance counts a set partitioner replacement.
func (p *PrometheusCollector) RecordRebalance(reason string) {
	p.ensureRegistered()
	p.rebalances.WithLabelValues(reason).Inc()
}

// RecordPartitionCount sets the target partition gauge.
func (p *PrometheusCollector) RecordPartitionCount(count int) {
	p.ensureRegistered()
	p.partitions.Set(float64(count))
}

// RecordAcquiredCount sets the acquired partition gauge.
func (p *PrometheusCollector) RecordAcquiredCount(count int) {
	p.ensureRegistered()
	p.acquired.Set(float64(count))
}

// RecordCallbackError counts a failed callback.
func (p *PrometheusCollector) RecordCallbackError(op string) {
	p.ensureRegistered()
	p.callbackErrors.WithLabelValues(op).Inc()
}

// RecordDiscoveryFailure counts a failed metadata query.
func (p *PrometheusCollector) RecordDiscoveryFailure(deferred bool) {
	p.ensureRegistered()
	p.discoveryFailures.WithLabelValues(strconv.FormatBool(deferred)).Inc()
}

// RecordHeartbeat counts a heartbeat by result. The member ID is not used as
// a label to keep cardinality bounded.
func (p *PrometheusCollector) RecordHeartbeat(_ string, success bool) {
	p.ensureRegistered()
	p.heartbeats.WithLabelValues(result(success)).Inc()
}

// RecordMemberCount sets the member gauge.
func (p *PrometheusCollector) RecordMemberCount(count int) {
	p.ensureRegistered()
	p.members.Set(float64(count))
}

// RecordLockOperation counts a lock operation.
func (p *PrometheusCollector) RecordLockOperation(operation string, success bool) {
	p.ensureRegistered()
	p.lockOperations.WithLabelValues(operation, result(success)).Inc()
}

// RecordKVOperationDuration observes a KV operation latency.
func (p *PrometheusCollector) RecordKVOperationDuration(operation string, duration float64) {
	p.ensureRegistered()
	p.kvLatency.WithLabelValues(operation).Observe(duration)
}

func result(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}
