// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/kgroup/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	p, err := kgroup.NewPartitioner(&cfg, topics, onAcquire, onRelease, kgroup.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// CoordinatorMetrics implementation

// RecordStateTransition discards the state transition metric.
func (n *NopMetrics) RecordStateTransition(_ /* from */, _ /* to */ types.PartitionState) {}

// RecordRebalance discards the rebalance metric.
func (n *NopMetrics) RecordRebalance(_ /* reason */ string) {}

// RecordPartitionCount discards the partition count metric.
func (n *NopMetrics) RecordPartitionCount(_ /* count */ int) {}

// RecordAcquiredCount discards the acquired count metric.
func (n *NopMetrics) RecordAcquiredCount(_ /* count */ int) {}

// RecordCallbackError discards the callback error metric.
func (n *NopMetrics) RecordCallbackError(_ /* op */ string) {}

// RecordDiscoveryFailure discards the discovery failure metric.
func (n *NopMetrics) RecordDiscoveryFailure(_ /* deferred */ bool) {}

// MembershipMetrics implementation

// RecordHeartbeat discards the heartbeat metric.
func (n *NopMetrics) RecordHeartbeat(_ /* memberID */ string, _ /* success */ bool) {}

// RecordMemberCount discards the member count metric.
func (n *NopMetrics) RecordMemberCount(_ /* count */ int) {}

// RecordLockOperation discards the lock operation metric.
func (n *NopMetrics) RecordLockOperation(_ /* operation */ string, _ /* success */ bool) {}

// RecordKVOperationDuration discards the KV operation duration metric.
func (n *NopMetrics) RecordKVOperationDuration(_ /* operation */ string, _ /* duration */ float64) {}
