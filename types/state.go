package types

// PartitionState is the lifecycle state reported by a SetPartitioner.
//
// A partitioner moves through the states as group membership evolves:
//
//	Allocating → Acquired → Release → Allocating → ...
//
// Failure is terminal for the partitioner instance.
type PartitionState int

const (
	// PartitionAllocating indicates the group is still negotiating which
	// partitions this member receives.
	PartitionAllocating PartitionState = iota

	// PartitionAcquired indicates the allocation is final and the member holds its share.
	PartitionAcquired

	// PartitionRelease indicates the member must give up its partitions
	// because the group changed.
	PartitionRelease

	// PartitionFailure indicates the partitioner or its session failed irrecoverably.
	PartitionFailure
)

// String returns the string representation of the state.
func (s PartitionState) String() string {
	switch s {
	case PartitionAllocating:
		return "Allocating"
	case PartitionAcquired:
		return "Acquired"
	case PartitionRelease:
		return "Release"
	case PartitionFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// SessionState is the connection state of a coordination service session.
type SessionState int

const (
	// SessionLost indicates the session is closed or was never established.
	SessionLost SessionState = iota

	// SessionSuspended indicates the session is temporarily disconnected and may recover.
	SessionSuspended

	// SessionConnected indicates the session is usable.
	SessionConnected
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case SessionLost:
		return "Lost"
	case SessionSuspended:
		return "Suspended"
	case SessionConnected:
		return "Connected"
	default:
		return "Unknown"
	}
}
