package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods may be called from background goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces.
type MetricsCollector interface {
	CoordinatorMetrics
	MembershipMetrics
}

// CoordinatorMetrics defines metrics for the Partitioner.
type CoordinatorMetrics interface {
	// RecordStateTransition records an observed partitioner state change.
	RecordStateTransition(from, to PartitionState)

	// RecordRebalance records a partitioner being replaced.
	//
	// Parameters:
	//   - reason: Why the partitioner was replaced ("initial", "partition_change")
	RecordRebalance(reason string)

	// RecordPartitionCount sets the size of the target partition set (gauge).
	RecordPartitionCount(count int)

	// RecordAcquiredCount sets the number of acquired sub-partitions (gauge).
	RecordAcquiredCount(count int)

	// RecordCallbackError records a failed acquire or release callback.
	//
	// Parameters:
	//   - op: "acquire" or "release"
	RecordCallbackError(op string)

	// RecordDiscoveryFailure records a failed broker metadata query.
	//
	// Parameters:
	//   - deferred: true when the failure was deferred to a later refresh
	RecordDiscoveryFailure(deferred bool)
}

// MembershipMetrics defines metrics for the set partitioner primitive.
type MembershipMetrics interface {
	// RecordHeartbeat records a member heartbeat.
	RecordHeartbeat(memberID string, success bool)

	// RecordMemberCount sets the number of live group members (gauge).
	RecordMemberCount(count int)

	// RecordLockOperation records a partition lock operation.
	//
	// Parameters:
	//   - operation: "acquire", "renew" or "release"
	//   - success: Whether the operation succeeded
	RecordLockOperation(operation string, success bool)

	// RecordKVOperationDuration records NATS KV operation latency.
	//
	// Parameters:
	//   - operation: Operation type ("get", "put", "create", "delete", "keys")
	//   - duration: Time taken in seconds
	RecordKVOperationDuration(operation string, duration float64)
}
